package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/browser/action"
	"github.com/xkilldash9x/formcheck/internal/browser/session"
	"github.com/xkilldash9x/formcheck/internal/cases"
	"github.com/xkilldash9x/formcheck/internal/observability"
	"github.com/xkilldash9x/formcheck/internal/reporting"
	"github.com/xkilldash9x/formcheck/internal/server"
	"github.com/xkilldash9x/formcheck/internal/suite"
)

const teardownTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the form scenario once per row of the data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			rows, err := cases.Load(cfg.Suite().DataFile, cfg.Suite().Sheet)
			if err != nil {
				return fmt.Errorf("failed to load test cases: %w", err)
			}
			logger.Info("Loaded test cases.", zap.String("file", cfg.Suite().DataFile), zap.Int("count", len(rows)))

			rep, err := reporting.New(cfg.Report().Format, cfg.Report().Dir, logger)
			if err != nil {
				return fmt.Errorf("failed to create reporter: %w", err)
			}
			defer func() {
				if err := rep.Close(); err != nil {
					logger.Warn("Failed to close reporter.", zap.Error(err))
				}
			}()

			var contentServer suite.ContentServer
			if cfg.Server().Enabled {
				srv, err := server.New(cfg.Server(), logger)
				if err != nil {
					return fmt.Errorf("failed to create content server: %w", err)
				}
				contentServer = srv
			}

			manager := session.NewManager(cfg.Browser(), logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser sessions did not shut down cleanly.", zap.Error(err))
				}
			}()

			runner, err := suite.New(suite.Options{
				Config:   cfg,
				Logger:   logger,
				Sessions: suite.ChromeSessions(manager),
				Sink:     rep,
				Server:   contentServer,
			})
			if err != nil {
				return err
			}
			if err := runner.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
				defer cancel()
				if err := runner.Stop(stopCtx); err != nil {
					logger.Warn("Content server did not stop cleanly.", zap.Error(err))
				}
			}()

			summary := runner.Run(ctx, rows)
			printSummary(cmd.OutOrStdout(), summary)
			if d, ok := rep.(*reporting.DirSink); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", d.Dir())
			}

			if err := ctx.Err(); err != nil {
				return err
			}
			if !summary.OK() {
				return fmt.Errorf("%d of %d cases failed", summary.Failed, len(summary.Results))
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.String("data", "", "test data file (.csv or .xlsx)")
	fs.String("sheet", "", "worksheet to read from an .xlsx data file")
	fs.String("base-url", "", "root URL of an already running application")
	fs.Bool("headless", true, "run the browser without a window")
	fs.Int("concurrency", 1, "number of cases to run in parallel")
	fs.String("report-dir", "", "directory for run reports")
	fs.String("report-format", "", "report format: dir, memory or none")
	bindFlag(fs, "data", "suite.data_file")
	bindFlag(fs, "sheet", "suite.sheet")
	bindFlag(fs, "base-url", "suite.base_url")
	bindFlag(fs, "headless", "browser.headless")
	bindFlag(fs, "concurrency", "suite.concurrency")
	bindFlag(fs, "report-dir", "report.dir")
	bindFlag(fs, "report-format", "report.format")
	return cmd
}

func printSummary(w io.Writer, s suite.Summary) {
	for _, r := range s.Results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %-24s %8s", status, r.Name, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			if kind, ok := action.KindOf(r.Err); ok {
				fmt.Fprintf(w, "  [%s]", kind)
			}
			fmt.Fprintf(w, "  %v", r.Err)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed in %s\n", s.Passed, s.Failed, s.Duration.Round(time.Millisecond))
}
