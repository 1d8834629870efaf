package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/crosslane/bridge-orchestrator/config"
	"github.com/crosslane/bridge-orchestrator/connectionmonitor"
	"github.com/crosslane/bridge-orchestrator/gateways"
	"github.com/crosslane/bridge-orchestrator/gateways/axelarrelay"
	"github.com/crosslane/bridge-orchestrator/gateways/evmexecutor"
	"github.com/crosslane/bridge-orchestrator/gateways/signing"
	"github.com/crosslane/bridge-orchestrator/gateways/xrpledger"
	"github.com/crosslane/bridge-orchestrator/orchestrator"
	"github.com/crosslane/bridge-orchestrator/report"
	"github.com/crosslane/bridge-orchestrator/sessionstore"
	errors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

type transferOptions struct {
	tokenSymbol        string
	amount             string
	sourceChain        string
	destinationChain   string
	sourceAddress      string
	userAddress        string
	destinationAddress string
}

func newTransferCommand(root *rootOptions) *cobra.Command {
	opts := &transferOptions{}

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run one complete cross-ledger transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tokenSymbol, "token", "", "token symbol to transfer")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "amount to transfer, in token units")
	cmd.Flags().StringVar(&opts.sourceChain, "source-chain", "", "source chain name")
	cmd.Flags().StringVar(&opts.destinationChain, "destination-chain", "", "destination chain name")
	cmd.Flags().StringVar(&opts.sourceAddress, "source-address", "", "funding account on the source ledger")
	cmd.Flags().StringVar(&opts.userAddress, "user-address", "", "user account on the source ledger")
	cmd.Flags().StringVar(&opts.destinationAddress, "destination-address", "", "recipient on the destination chain; falls back to the address relay")

	return cmd
}

func runTransfer(ctx context.Context, root *rootOptions, opts *transferOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := root.cfg
	logger := root.logger

	params, err := resolveParams(cfg, opts)
	if err != nil {
		return err
	}

	mode := gateways.ParseMode(cfg.Mode)
	set, err := gateways.NewFactory().CreateSet(ctx, &gateways.Config{
		Mode:                mode,
		LedgerEndpoint:      cfg.Ledger.Endpoint,
		SubmitBackoff:       cfg.Ledger.SubmitBackoff,
		FinalityTimeout:     cfg.Ledger.FinalityTimeout,
		RelayBaseURL:        cfg.Relay.BaseURL,
		RelayBaseFee:        cfg.Relay.BaseFee,
		DestinationRPC:      cfg.Destination.RPCURL,
		DestinationContract: cfg.Destination.ContractAddress,
		OperatorKey:         cfg.OperatorKey,
		SimLedgerFee:        cfg.Ledger.SimFee,
	}, logger)
	if err != nil {
		return err
	}

	if mode == gateways.ModeSim {
		seedSimulation(set, params)
	}

	// Long live runs keep the ledger connection under watch; the simulator
	// has nothing to monitor.
	if ledger, ok := set.Ledger.(*xrpledger.Gateway); ok {
		monitor := connectionmonitor.NewConnectionMonitor(ledger, logger, params.SourceChain)
		if err := monitor.Start(ctx); err != nil {
			return err
		}
		defer monitor.Stop()
	}

	seed := cfg.SignerSeed
	if seed == "" && mode == gateways.ModeSim {
		seed = "simulation-signing-seed"
	}
	signer, err := signing.NewLocalSigner(seed)
	if err != nil {
		return err
	}

	builder := orchestrator.NewBuilder(&orchestrator.Config{
		SessionPrefix:     cfg.SessionPrefix,
		GatewayAddress:    cfg.GatewayAddress,
		StepTimeout:       cfg.StepTimeout,
		SubmitMaxAttempts: cfg.SubmitMaxAttempts,
		Tolerance:         cfg.Tolerance,
	}).
		WithLedgerGateway(set.Ledger).
		WithRelayGateway(set.Relay).
		WithDestinationExecutor(set.Destination).
		WithSigner(signer).
		WithLogger(logger)

	if cfg.WebhookURL != "" {
		builder = builder.WithNotifier(report.NewWebhookNotifier(cfg.WebhookURL, logger))
	}
	if cfg.DatabaseURL != "" {
		store, err := sessionstore.NewSessionStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		builder = builder.WithArchiver(store)
	}

	orch, err := builder.Build()
	if err != nil {
		return err
	}

	session, err := orch.Execute(ctx, params)
	if err != nil {
		return err
	}

	fmt.Print(report.Generate(session))
	if session.Status() == types.StateFailed {
		return errors.Errorf("transfer %s failed", session.TransferID)
	}
	return nil
}

// resolveParams merges command flags over config defaults and, when no
// destination address is available anywhere, asks the address relay for the
// last wallet-connected one.
func resolveParams(cfg *config.Config, opts *transferOptions) (types.TransferParams, error) {
	params := types.TransferParams{
		SourceChain:        firstNonEmpty(opts.sourceChain, cfg.Transfer.SourceChain),
		DestinationChain:   firstNonEmpty(opts.destinationChain, cfg.Transfer.DestinationChain),
		SourceAddress:      firstNonEmpty(opts.sourceAddress, cfg.Transfer.SourceAddress),
		UserAddress:        firstNonEmpty(opts.userAddress, cfg.Transfer.UserAddress),
		DestinationAddress: firstNonEmpty(opts.destinationAddress, cfg.Transfer.DestinationAddress),
		TokenSymbol:        firstNonEmpty(opts.tokenSymbol, cfg.Transfer.TokenSymbol),
		Amount:             firstNonEmpty(opts.amount, cfg.Transfer.Amount),
	}

	if params.DestinationAddress == "" {
		address, err := fetchRelayedAddress(cfg.AddressRelayBind)
		if err != nil {
			return params, errors.Wrap(err, "no destination address configured and the address relay has none")
		}
		params.DestinationAddress = address
	}

	return params, params.Validate()
}

// seedSimulation gives the simulated gateways a workable world: funded
// accounts, a registered bridge route and a supported destination token.
func seedSimulation(set *gateways.Set, params types.TransferParams) {
	if ledger, ok := set.Ledger.(*xrpledger.Simulator); ok {
		ledger.Fund(params.SourceAddress, "100")
		ledger.Fund(params.UserAddress, "20")
	}
	if relay, ok := set.Relay.(*axelarrelay.Simulator); ok {
		relay.RegisterToken(params.TokenSymbol, params.SourceChain, params.DestinationChain)
	}
	if destination, ok := set.Destination.(*evmexecutor.Simulator); ok {
		destination.SupportToken(types.TokenInfo{
			Symbol:   params.TokenSymbol,
			Decimals: 18,
		})
	}
}

// fetchRelayedAddress queries the address relay facade for the last
// wallet-connected destination address.
func fetchRelayedAddress(bind string) (string, error) {
	url := "http://localhost" + bind + "/get-address"
	if bind != "" && bind[0] != ':' {
		url = "http://" + bind + "/get-address"
	}

	status, body, err := (&fasthttp.Client{ReadTimeout: 5 * time.Second}).GetTimeout(nil, url, 5*time.Second)
	if err != nil {
		return "", errors.Wrap(err, "address relay unreachable")
	}
	if status != fasthttp.StatusOK {
		return "", errors.Errorf("address relay returned status %d", status)
	}

	var resp struct {
		Address *string `json:"address"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "malformed address relay response")
	}
	if resp.Address == nil || *resp.Address == "" {
		return "", errors.New("no wallet address has been relayed yet")
	}
	return *resp.Address, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
