package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/config"
)

var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var settings = config.New()

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront serves the shop cart and checkout for the game host",
	Long: `Storefront keeps the player's cart, wallet view and checkout for the
shop the host has opened. The catalog client talks to it over HTTP; host
messages arrive over HTTP or NATS Streaming.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(settings, configFile)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()
		return a.run(ctx)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./storefront.yaml)")
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("host-url", "", "host request channel base URL (overrides host.resource)")
	flags.String("database-url", "", "PostgreSQL URL for the receipt journal")
	flags.Bool("stan", false, "subscribe to host messages over NATS Streaming")
	flags.String("log-level", "info", "log level")

	for key, flag := range map[string]string{
		"http.addr":     "addr",
		"host.base_url": "host-url",
		"database.url":  "database-url",
		"stan.enabled":  "stan",
		"log.level":     "log-level",
	} {
		if err := settings.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}
