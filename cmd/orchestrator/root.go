package main

import (
	"github.com/crosslane/bridge-orchestrator/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Cross-ledger transfer orchestration pipeline",
		Long:          "Drives token transfers from a source ledger through a bridge gateway and interchain relay to a destination chain, with balance reconciliation at the end.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if opts.verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
			opts.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newTransferCommand(opts))
	cmd.AddCommand(newAddressRelayCommand(opts))

	return cmd
}
