package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
mode: live
sessionPrefix: xfer
gatewayAddress: rU6K7V3Po4snVhBBaU29sesqs2qTQJWDw1
stepTimeout: 45s
submitMaxAttempts: 5
tolerance: "0.25"
ledger:
  endpoint: https://s.altnet.rippletest.net:51234
  submitBackoff: 2s
  finalityTimeout: 60s
relay:
  baseUrl: https://relay.example.com
  baseFee: "0.001"
destination:
  rpcUrl: https://sepolia.example.com
  contractAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
transfer:
  sourceChain: xrpl-testnet
  destinationChain: ethereum-sepolia
  tokenSymbol: XRP
  amount: "10"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "live" {
		t.Errorf("Mode = %s, want live", cfg.Mode)
	}
	if cfg.SessionPrefix != "xfer" {
		t.Errorf("SessionPrefix = %s, want xfer", cfg.SessionPrefix)
	}
	if cfg.StepTimeout != 45*time.Second {
		t.Errorf("StepTimeout = %s, want 45s", cfg.StepTimeout)
	}
	if cfg.SubmitMaxAttempts != 5 {
		t.Errorf("SubmitMaxAttempts = %d, want 5", cfg.SubmitMaxAttempts)
	}
	if cfg.Tolerance != "0.25" {
		t.Errorf("Tolerance = %s, want 0.25", cfg.Tolerance)
	}
	if cfg.Ledger.Endpoint != "https://s.altnet.rippletest.net:51234" {
		t.Errorf("Ledger.Endpoint = %s", cfg.Ledger.Endpoint)
	}
	if cfg.Ledger.SubmitBackoff != 2*time.Second {
		t.Errorf("Ledger.SubmitBackoff = %s, want 2s", cfg.Ledger.SubmitBackoff)
	}
	if cfg.Transfer.TokenSymbol != "XRP" {
		t.Errorf("Transfer.TokenSymbol = %s, want XRP", cfg.Transfer.TokenSymbol)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_MODE", "sim")
	t.Setenv("LEDGER_RPC_URL", "https://other.example.com")
	t.Setenv("SIGNER_SEED", "env-seed")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "sim" {
		t.Errorf("Mode = %s, want env override sim", cfg.Mode)
	}
	if cfg.Ledger.Endpoint != "https://other.example.com" {
		t.Errorf("Ledger.Endpoint = %s, want env override", cfg.Ledger.Endpoint)
	}
	if cfg.SignerSeed != "env-seed" {
		t.Errorf("SignerSeed = %s, want env-seed", cfg.SignerSeed)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "sim" {
		t.Errorf("default Mode = %s, want sim", cfg.Mode)
	}
	if cfg.StepTimeout != 90*time.Second {
		t.Errorf("default StepTimeout = %s, want 90s", cfg.StepTimeout)
	}
	if cfg.SubmitMaxAttempts != 3 {
		t.Errorf("default SubmitMaxAttempts = %d, want 3", cfg.SubmitMaxAttempts)
	}
	if cfg.Tolerance != "0.1" {
		t.Errorf("default Tolerance = %s, want 0.1", cfg.Tolerance)
	}
	if cfg.AddressRelayBind != ":3001" {
		t.Errorf("default AddressRelayBind = %s, want :3001", cfg.AddressRelayBind)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "mode: [unclosed")); err == nil {
		t.Error("malformed YAML accepted")
	}
}
