package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"calsite/internal/config"
	appLog "calsite/internal/log"
)

const version = "0.1.0"

// rootOptions holds persistent flag values shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "calsite",
		Short:         "Generate a static, paginated calendar site from ICS sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := appLog.ParseLevel(o.logLevel)
			if err != nil {
				return err
			}
			appLog.SetLevel(lvl)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "./calsite.yaml", "Path to config file (created with defaults if missing)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	addBuild(cmd, o)
	addServe(cmd, o)
	addCapture(cmd, o)
	return cmd
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		appLog.Error("calsite failed", err)
		stop()
		os.Exit(1)
	}
}
