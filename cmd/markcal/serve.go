package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appLog "markcal/internal/log"
	"markcal/internal/schedule"
	"markcal/internal/web"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			// --listen overrides the config file.
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("markcal starting",
				"version", version,
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"locale", cfg.Locale,
				"holiday_source", cfg.Holidays.Source,
				"raster_backend", cfg.Raster.Backend,
			)

			ctrl, err := newController(cfg)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctx, cancel := signalContext()
			defer cancel()

			sched := schedule.New(ctrl.Location())
			if err := schedule.Register(sched, cfg, ctrl); err != nil {
				return fmt.Errorf("failed to register jobs: %w", err)
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer stopCancel()
				if err := sched.Stop(stopCtx); err != nil {
					appLog.Warn("scheduler did not stop cleanly", "err", err.Error())
				}
			}()

			err = web.Serve(ctx, cfg, ctrl)
			appLog.Info("markcal exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
