package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/natsstan"
	"github.com/example/storefront/internal/config"
)

var configFile string

var settings = config.New()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "publisher [file]",
	Short: "Publish a host message to the storefront subject",
	Long: `Reads one host message (openShop or closeShop) from file or stdin,
checks it and publishes it on the configured NATS Streaming subject.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(settings, configFile)
		if err != nil {
			return err
		}
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		raw, err := io.ReadAll(io.LimitReader(in, 1<<20))
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		clientID, _ := cmd.Flags().GetString("client-id")
		pub, err := natsstan.Dial(cfg.STAN.ClusterID, clientID, cfg.STAN.URL, cfg.STAN.Subject)
		if err != nil {
			return err
		}
		defer pub.Close()

		msg, err := pub.Publish(raw)
		if err != nil {
			return err
		}
		logger.Info("published host message",
			zap.String("action", msg.Action),
			zap.Int("items", len(msg.Items)),
			zap.Int("bytes", len(raw)),
			zap.String("subject", cfg.STAN.Subject))
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./storefront.yaml)")
	flags.String("client-id", "storefront-publisher", "NATS Streaming client id")
	flags.String("subject", "storefront.host", "subject to publish on")
	flags.String("url", "nats://localhost:4223", "NATS URL")

	for key, flag := range map[string]string{
		"stan.subject": "subject",
		"stan.url":     "url",
	} {
		if err := settings.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
