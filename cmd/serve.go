package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/observability"
	"github.com/xkilldash9x/formcheck/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application under test until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg.Server(), logger)
			if err != nil {
				return err
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}
			stderrf(cmd, "Serving %s on %s", cfg.Server().Dir, srv.URL())

			var serveErr error
			select {
			case <-ctx.Done():
			case err, ok := <-srv.Done():
				if ok && err != nil {
					serveErr = fmt.Errorf("content server stopped: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Content server did not stop cleanly.", zap.Error(err))
			}
			return serveErr
		},
	}
	fs := cmd.Flags()
	fs.String("host", "", "interface to listen on")
	fs.Int("port", 0, "port to listen on (0 picks a free port)")
	fs.String("dir", "", "directory to serve")
	bindFlag(fs, "host", "server.host")
	bindFlag(fs, "port", "server.port")
	bindFlag(fs, "dir", "server.dir")
	return cmd
}
