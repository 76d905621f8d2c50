package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/config"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/memstore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "entry",
		Short:         "Finance entry backend: transaction wizard, toasts and confirmations",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// --- Load .env file (for local development) ---
			return config.LoadDotEnv(".env")
		},
	}

	root.AddCommand(newServeCmd(), newCheckSeedCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port     int
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port (overrides PORT)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error (overrides LOG_LEVEL)")
	return cmd
}

func newCheckSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-seed <file>",
		Short: "Validate a ledger seed file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := memstore.LoadSeed(args[0])
			if err != nil {
				return err
			}
			if _, err := memstore.New(seed, zap.NewNop()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d categories, %d wallets, %d transactions\n",
				len(seed.Categories), len(seed.Wallets), len(seed.Transactions))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
