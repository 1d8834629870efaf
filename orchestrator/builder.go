package orchestrator

import (
	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Builder is a builder pattern implementation for orchestrator assembly.
// It allows setting the gateway collaborators of the pipeline: ledger
// gateway, relay gateway, destination executor, transaction signer and the
// optional archiver and notification sink.
type Builder struct {
	config      *Config
	logger      *logrus.Logger
	ledger      types.LedgerGateway
	relay       types.RelayGateway
	destination types.DestinationExecutor
	signer      types.TransactionSigner
	notifier    types.NotificationSink
	archiver    SessionArchiver
}

// NewBuilder creates a new orchestrator builder instance.
//
// Parameters:
// - config: the run configuration. Zero fields receive defaults at Build.
//
// Returns:
// - *Builder: a new Builder instance.
func NewBuilder(config *Config) *Builder {
	return &Builder{
		config: config,
	}
}

// WithLedgerGateway sets the source ledger gateway implementation.
func (b *Builder) WithLedgerGateway(ledger types.LedgerGateway) *Builder {
	b.ledger = ledger
	return b
}

// WithRelayGateway sets the interchain relay gateway implementation.
func (b *Builder) WithRelayGateway(relay types.RelayGateway) *Builder {
	b.relay = relay
	return b
}

// WithDestinationExecutor sets the destination executor implementation.
func (b *Builder) WithDestinationExecutor(destination types.DestinationExecutor) *Builder {
	b.destination = destination
	return b
}

// WithSigner sets the transaction signer implementation.
func (b *Builder) WithSigner(signer types.TransactionSigner) *Builder {
	b.signer = signer
	return b
}

// WithNotifier sets the optional completion notification sink.
func (b *Builder) WithNotifier(notifier types.NotificationSink) *Builder {
	b.notifier = notifier
	return b
}

// WithArchiver sets the optional terminal session archiver.
func (b *Builder) WithArchiver(archiver SessionArchiver) *Builder {
	b.archiver = archiver
	return b
}

// WithLogger sets the logger used across the pipeline.
func (b *Builder) WithLogger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates a new orchestrator with the configured implementations.
//
// Returns:
// - *Orchestrator: a new Orchestrator instance.
// - error: ErrInvalidParams when a required collaborator is missing.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.config == nil {
		b.config = &Config{}
	}
	b.config.applyDefaults()

	if b.ledger == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidParams, "ledger gateway is required")
	}
	if b.relay == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidParams, "relay gateway is required")
	}
	if b.destination == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidParams, "destination executor is required")
	}
	if b.signer == nil {
		return nil, errors.Wrap(commonerrors.ErrInvalidParams, "transaction signer is required")
	}
	if b.config.GatewayAddress == "" {
		return nil, errors.Wrap(commonerrors.ErrInvalidParams, "gateway address is required")
	}
	if b.logger == nil {
		b.logger = logrus.New()
	}

	return &Orchestrator{
		config:      b.config,
		logger:      b.logger,
		ledger:      b.ledger,
		relay:       b.relay,
		destination: b.destination,
		signer:      b.signer,
		notifier:    b.notifier,
		archiver:    b.archiver,
		registry:    NewSessionRegistry(),
		runner:      NewStepRunner(b.config.StepTimeout, b.logger),
	}, nil
}
