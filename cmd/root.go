package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/config"
	"github.com/xkilldash9x/formcheck/internal/observability"
)

const (
	envPrefix = "FORMCHECK"
	// configKeyAnnotation ties a flag to the viper key it overrides.
	configKeyAnnotation = "formcheck/config-key"
)

type contextKey string

const configKey contextKey = "config"

// Execute builds the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	err := newRootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed.", zap.Error(err))
	}
	observability.Sync()
	return err
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "formcheck",
		Short:         "Data-driven browser tests for the login and registration form.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formcheck"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting formcheck.", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./formcheck.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCasesCmd())
	return cmd
}

// initializeConfig reads the config file and environment into v and binds
// every flag annotated with a config key, so flags win over both.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("formcheck")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[configKeyAnnotation]
		if !ok || len(keys) == 0 || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	return bindErr
}

// bindFlag marks flag name on fs as an override for key.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("flag %q: %v", name, err))
	}
}

// configFrom returns the config loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// stderrf writes a diagnostic line to the command's error stream.
func stderrf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
