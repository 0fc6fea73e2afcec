package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fastslice/internal/daemon"
	"fastslice/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for slicing local files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.API.Bind = bind
			}
			logger := ctx.log()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			tools, err := ctx.tools()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, tools, ctx.processRunner(), store, logger)
			if err != nil {
				if store != nil {
					store.Close()
				}
				return fmt.Errorf("create server: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", d.Addr())
			if cfg.API.Token == "" {
				logger.Warn("api token not set; requests are not authenticated",
					logging.String(logging.FieldEventType, "api_unauthenticated"),
					logging.String(logging.FieldErrorHint, "set api.token or FASTSLICE_API_TOKEN"),
				)
			}

			<-signalCtx.Done()
			logger.Info("fastslice server shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}
