package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quietdrop/internal/config"
	"quietdrop/internal/utils/log"
)

var (
	cfg *config.Config

	errUsage = errors.New("usage: quietdrop <server|client>")
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer log.Sync()

	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return err
	}

	root := &cobra.Command{
		Use:   "quietdrop <server|client>",
		Short: "End-to-end encrypted message drop",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return log.Init(cfg.LogLevel, cfg.LogDevelopment)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errUsage
		},
	}

	root.PersistentFlags().StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "directory holding the server key files")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&cfg.LogDevelopment, "log-dev", cfg.LogDevelopment, "human-readable development logging")
	root.PersistentFlags().DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "per-connection read/write deadline")

	root.AddCommand(serverCmd(), clientCmd())
	return root.ExecuteContext(ctx)
}
