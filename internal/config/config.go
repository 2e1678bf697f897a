// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing harness configuration.
// Components depend on this rather than the concrete struct so tests can
// hand them a trimmed-down config.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Server() ServerConfig
	Suite() SuiteConfig
	Report() ReportConfig

	// Suite Setters
	SetSuiteBaseURL(string)
	SetSuiteDataFile(string)
	SetSuiteConcurrency(int)

	// Browser Setters
	SetBrowserHeadless(bool)
}

// Config holds the entire harness configuration for one test run.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	ServerCfg  ServerConfig  `mapstructure:"server" yaml:"server"`
	SuiteCfg   SuiteConfig   `mapstructure:"suite" yaml:"suite"`
	ReportCfg  ReportConfig  `mapstructure:"report" yaml:"report"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Server() ServerConfig   { return c.ServerCfg }
func (c *Config) Suite() SuiteConfig     { return c.SuiteCfg }
func (c *Config) Report() ReportConfig   { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetSuiteBaseURL(u string)  { c.SuiteCfg.BaseURL = u }
func (c *Config) SetSuiteDataFile(p string) { c.SuiteCfg.DataFile = p }
func (c *Config) SetSuiteConcurrency(n int) { c.SuiteCfg.Concurrency = n }
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser sessions and the
// wait budgets used by the action layer.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath       string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	AlertTimeout   time.Duration `mapstructure:"alert_timeout" yaml:"alert_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ServerConfig describes the static content server that hosts the
// application under test.
type ServerConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Host        string        `mapstructure:"host" yaml:"host"`
	Port        int           `mapstructure:"port" yaml:"port"`
	Dir         string        `mapstructure:"dir" yaml:"dir"`
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// Addr returns the host:port pair the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SuiteConfig drives the scenario: where the app lives, which rows to run
// and how many cases may run at once.
type SuiteConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	DataFile     string        `mapstructure:"data_file" yaml:"data_file"`
	Sheet        string        `mapstructure:"sheet" yaml:"sheet"`
	DefaultSkill string        `mapstructure:"default_skill" yaml:"default_skill"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	CaseTimeout  time.Duration `mapstructure:"case_timeout" yaml:"case_timeout"`
}

// ReportConfig selects the reporting sink.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formcheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.element_timeout", "10s")
	v.SetDefault("browser.alert_timeout", "3s")
	v.SetDefault("browser.poll_interval", "100ms")

	// -- Server --
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.dir", "testdata/app")
	v.SetDefault("server.settle_delay", "2s")

	// -- Suite --
	v.SetDefault("suite.base_url", "")
	v.SetDefault("suite.data_file", "testdata/test_data.csv")
	v.SetDefault("suite.sheet", "")
	v.SetDefault("suite.default_skill", "Selenium")
	v.SetDefault("suite.concurrency", 1)
	v.SetDefault("suite.case_timeout", "2m")

	// -- Report --
	v.SetDefault("report.format", "dir")
	v.SetDefault("report.dir", "test-results")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading '~' in every path-valued setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.ServerCfg.Dir, &c.SuiteCfg.DataFile, &c.ReportCfg.Dir, &c.LoggerCfg.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.ServerCfg.Validate(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}
	if c.SuiteCfg.Concurrency <= 0 {
		return fmt.Errorf("suite.concurrency must be a positive integer")
	}
	if c.SuiteCfg.CaseTimeout <= 0 {
		return fmt.Errorf("suite.case_timeout must be a positive duration")
	}
	if c.SuiteCfg.BaseURL == "" && !c.ServerCfg.Enabled {
		return fmt.Errorf("suite.base_url is required when the content server is disabled")
	}
	if c.SuiteCfg.BaseURL != "" {
		u, err := url.Parse(c.SuiteCfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("suite.base_url must be an absolute URL, got %q", c.SuiteCfg.BaseURL)
		}
	}
	switch c.ReportCfg.Format {
	case "dir", "memory", "none":
	default:
		return fmt.Errorf("report.format must be one of dir, memory, none; got %q", c.ReportCfg.Format)
	}
	return nil
}

// Validate checks the browser budgets.
func (b *BrowserConfig) Validate() error {
	if b.ViewportWidth <= 0 || b.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must have positive dimensions, got %dx%d", b.ViewportWidth, b.ViewportHeight)
	}
	if b.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be a positive duration")
	}
	if b.ElementTimeout <= 0 {
		return fmt.Errorf("element_timeout must be a positive duration")
	}
	if b.AlertTimeout <= 0 {
		return fmt.Errorf("alert_timeout must be a positive duration")
	}
	if b.PollInterval <= 0 || b.PollInterval > b.ElementTimeout {
		return fmt.Errorf("poll_interval must be positive and no longer than element_timeout")
	}
	return nil
}

// Validate checks the content server settings.
func (s *ServerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if strings.TrimSpace(s.Dir) == "" {
		return fmt.Errorf("dir is required when the server is enabled")
	}
	if s.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	return nil
}
