// Package gateways wires the three external-boundary adapters the pipeline
// runs against. Each gateway concern has exactly one interface and two
// implementations, a live adapter and a deterministic simulator, selected by
// mode through the factory rather than by code toggling.
package gateways

import (
	"context"
	"sync"
	"time"

	commontypes "github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/crosslane/bridge-orchestrator/gateways/axelarrelay"
	"github.com/crosslane/bridge-orchestrator/gateways/evmexecutor"
	"github.com/crosslane/bridge-orchestrator/gateways/xrpledger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mode selects which implementation family the factory builds.
type Mode string

const (
	// ModeLive builds adapters against real network endpoints.
	ModeLive Mode = "LIVE"
	// ModeSim builds deterministic in-memory simulators.
	ModeSim Mode = "SIM"
	// ModeUnknown represents an unrecognized mode string.
	ModeUnknown Mode = "UNKNOWN"
)

// String converts Mode to its string representation.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a string to its Mode representation.
func ParseMode(s string) Mode {
	switch s {
	case "live", "LIVE":
		return ModeLive
	case "sim", "SIM":
		return ModeSim
	default:
		return ModeUnknown
	}
}

// Config carries gateway endpoint settings for both implementation families.
type Config struct {
	Mode Mode

	LedgerEndpoint  string
	SubmitBackoff   time.Duration
	FinalityTimeout time.Duration

	RelayBaseURL string
	RelayBaseFee string

	DestinationRPC      string
	DestinationContract string
	OperatorKey         string

	SimLedgerFee string
}

// Set bundles the three gateways one pipeline run needs.
type Set struct {
	Ledger      commontypes.LedgerGateway
	Relay       commontypes.RelayGateway
	Destination commontypes.DestinationExecutor
}

// Constructor builds a gateway set for one mode.
type Constructor func(ctx context.Context, config *Config, logger *logrus.Logger) (*Set, error)

// Factory defines the interface for gateway set creation.
type Factory interface {
	// RegisterConstructor registers a constructor for a mode, replacing any
	// prior registration.
	RegisterConstructor(mode Mode, constructor Constructor)

	// CreateSet builds the gateway set for the configured mode.
	CreateSet(ctx context.Context, config *Config, logger *logrus.Logger) (*Set, error)
}

type gatewayFactory struct {
	constructors      map[Mode]Constructor
	constructorsMutex sync.RWMutex
}

// NewFactory creates a factory with the default live and sim constructors
// registered.
func NewFactory() Factory {
	factory := &gatewayFactory{
		constructors: make(map[Mode]Constructor),
	}
	factory.registerConstructors()
	return factory
}

func (f *gatewayFactory) RegisterConstructor(mode Mode, constructor Constructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()
	f.constructors[mode] = constructor
}

func (f *gatewayFactory) CreateSet(ctx context.Context, config *Config, logger *logrus.Logger) (*Set, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.Mode]
	f.constructorsMutex.RUnlock()

	if !exists {
		return nil, errors.Errorf("no gateway constructor for mode %q", config.Mode)
	}
	return constructor(ctx, config, logger)
}

func (f *gatewayFactory) registerConstructors() {
	f.RegisterConstructor(ModeLive, func(ctx context.Context, config *Config, logger *logrus.Logger) (*Set, error) {
		executor, err := evmexecutor.NewExecutor(ctx, config.DestinationRPC, config.DestinationContract, config.OperatorKey, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create destination executor")
		}
		return &Set{
			Ledger: xrpledger.NewGateway(&xrpledger.Config{
				Endpoint:        config.LedgerEndpoint,
				SubmitBackoff:   config.SubmitBackoff,
				FinalityTimeout: config.FinalityTimeout,
			}, logger),
			Relay:       axelarrelay.NewGateway(config.RelayBaseURL, logger),
			Destination: executor,
		}, nil
	})

	f.RegisterConstructor(ModeSim, func(_ context.Context, config *Config, _ *logrus.Logger) (*Set, error) {
		fee := config.SimLedgerFee
		if fee == "" {
			fee = "0.000012"
		}
		baseFee := config.RelayBaseFee
		if baseFee == "" {
			baseFee = "0.001"
		}
		return &Set{
			Ledger:      xrpledger.NewSimulator(fee),
			Relay:       axelarrelay.NewSimulator(baseFee),
			Destination: evmexecutor.NewSimulator(),
		}, nil
	})
}
