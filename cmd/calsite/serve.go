package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"calsite/internal/app"
	appLog "calsite/internal/log"
	"calsite/internal/site"
	"calsite/internal/web"
)

func addServe(topLevel *cobra.Command, o *rootOptions) {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build, serve the output directory and rebuild on the refresh schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			srv := web.NewServer(cfg, func(ctx context.Context) (*site.Manifest, error) {
				res, err := app.Build(ctx, cfg, time.Now())
				if err != nil {
					return nil, err
				}
				return res.Manifest, nil
			})

			// A failed first build still serves whatever is on disk.
			if err := srv.Rebuild(ctx); err != nil {
				appLog.Error("initial build failed", err)
			}

			sched, err := app.NewScheduler(ctx, cfg.RefreshCron, loc, srv.Rebuild)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				sched.Run(ctx)
				return nil
			})
			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})
			err = g.Wait()
			appLog.Info("calsite exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")

	topLevel.AddCommand(cmd)
}
