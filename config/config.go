// Package config loads orchestrator configuration from a YAML file with
// environment variable overrides for deployment-specific and secret values.
package config

import (
	"os"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	errors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LedgerConfig configures the source ledger gateway.
type LedgerConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	SubmitBackoff   time.Duration `yaml:"submitBackoff"`
	FinalityTimeout time.Duration `yaml:"finalityTimeout"`
	SimFee          string        `yaml:"simFee"`
}

// RelayConfig configures the interchain relay gateway.
type RelayConfig struct {
	BaseURL string `yaml:"baseUrl"`
	BaseFee string `yaml:"baseFee"`
}

// DestinationConfig configures the destination chain executor.
type DestinationConfig struct {
	RPCURL          string `yaml:"rpcUrl"`
	ContractAddress string `yaml:"contractAddress"`
}

// TransferConfig carries the default transfer route used when the command
// line does not override it.
type TransferConfig struct {
	SourceChain        string `yaml:"sourceChain"`
	DestinationChain   string `yaml:"destinationChain"`
	SourceAddress      string `yaml:"sourceAddress"`
	UserAddress        string `yaml:"userAddress"`
	DestinationAddress string `yaml:"destinationAddress"`
	TokenSymbol        string `yaml:"tokenSymbol"`
	Amount             string `yaml:"amount"`
}

// Config is the full orchestrator configuration.
type Config struct {
	Mode              string        `yaml:"mode"`
	SessionPrefix     string        `yaml:"sessionPrefix"`
	GatewayAddress    string        `yaml:"gatewayAddress"`
	StepTimeout       time.Duration `yaml:"stepTimeout"`
	SubmitMaxAttempts int           `yaml:"submitMaxAttempts"`
	Tolerance         string        `yaml:"tolerance"`
	WebhookURL        string        `yaml:"webhookUrl"`
	DatabaseURL       string        `yaml:"databaseUrl"`
	AddressRelayBind  string        `yaml:"addressRelayBind"`

	Ledger      LedgerConfig      `yaml:"ledger"`
	Relay       RelayConfig       `yaml:"relay"`
	Destination DestinationConfig `yaml:"destination"`
	Transfer    TransferConfig    `yaml:"transfer"`

	// Secrets are never read from YAML, only from the environment.
	SignerSeed  string `yaml:"-"`
	OperatorKey string `yaml:"-"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. A missing file is not an error: the environment and defaults
// alone can carry a simulated run.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrapf(commonerrors.ErrInvalidParams, "failed to read config file %s: %v", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(commonerrors.ErrInvalidParams, "failed to parse config file %s: %v", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with environment variables where set.
func (c *Config) applyEnv() {
	overrideString(&c.Mode, "BRIDGE_MODE")
	overrideString(&c.GatewayAddress, "BRIDGE_GATEWAY_ADDRESS")
	overrideString(&c.WebhookURL, "BRIDGE_WEBHOOK_URL")
	overrideString(&c.DatabaseURL, "DATABASE_URL")
	overrideString(&c.AddressRelayBind, "ADDRESS_RELAY_BIND")
	overrideString(&c.Ledger.Endpoint, "LEDGER_RPC_URL")
	overrideString(&c.Relay.BaseURL, "RELAY_BASE_URL")
	overrideString(&c.Destination.RPCURL, "DESTINATION_RPC_URL")
	overrideString(&c.Destination.ContractAddress, "DESTINATION_CONTRACT_ADDRESS")
	overrideString(&c.Transfer.SourceAddress, "SOURCE_ADDRESS")
	overrideString(&c.Transfer.UserAddress, "USER_ADDRESS")
	overrideString(&c.Transfer.DestinationAddress, "DESTINATION_ADDRESS")

	c.SignerSeed = os.Getenv("SIGNER_SEED")
	c.OperatorKey = os.Getenv("OPERATOR_KEY")
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "sim"
	}
	if c.SessionPrefix == "" {
		c.SessionPrefix = "its"
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = 90 * time.Second
	}
	if c.SubmitMaxAttempts == 0 {
		c.SubmitMaxAttempts = 3
	}
	if c.Tolerance == "" {
		c.Tolerance = "0.1"
	}
	if c.AddressRelayBind == "" {
		c.AddressRelayBind = ":3001"
	}
}

func overrideString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
