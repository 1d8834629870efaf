package main

import (
	"os/signal"
	"syscall"

	"github.com/crosslane/bridge-orchestrator/addressrelay"
	"github.com/spf13/cobra"
)

func newAddressRelayCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address-relay",
		Short: "Serve the wallet-connect address relay facade",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := addressrelay.NewServer(addressrelay.NewMemoryStore(), root.logger)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.ListenAndServe(root.cfg.AddressRelayBind)
			}()

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
				root.logger.Info("shutting down address relay")
				return server.Shutdown()
			}
		},
	}
}
