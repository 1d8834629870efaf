package types

import (
	"math/big"
	"strings"

	"github.com/crosslane/bridge-orchestrator/common/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	pkgerrors "github.com/pkg/errors"
)

// TransferParams holds the immutable inputs of one cross-ledger transfer.
// It is created once per transfer request and never mutated afterwards.
//
// Fields:
// - SourceChain: the name of the source ledger network.
// - DestinationChain: the name of the destination contract network.
// - SourceAddress: the funding account on the source ledger.
// - DestinationAddress: the final recipient on the destination chain (hex).
// - UserAddress: the user account on the source ledger that hands off to the gateway.
// - TokenSymbol: the symbol of the bridged token.
// - Amount: the transfer amount as a decimal string.
// - OriginalBalance: the source balance snapshot taken before the transfer.
// - WebhookURL: optional completion notification target.
type TransferParams struct {
	SourceChain        string
	DestinationChain   string
	SourceAddress      string
	DestinationAddress string
	UserAddress        string
	TokenSymbol        string
	Amount             string
	OriginalBalance    string
	WebhookURL         string
}

// Validate checks the invariants the orchestrator relies on: a positive
// amount and addresses matching their chain's addressing rules.
func (p *TransferParams) Validate() error {
	amount, err := ParseAmount(p.Amount)
	if err != nil {
		return pkgerrors.Wrap(errors.ErrInvalidParams, err.Error())
	}
	if amount.Sign() <= 0 {
		return pkgerrors.Wrap(errors.ErrInvalidParams, "amount must be positive")
	}
	if !IsLedgerAddress(p.SourceAddress) {
		return pkgerrors.Wrapf(errors.ErrInvalidParams, "invalid source address %q", p.SourceAddress)
	}
	if !IsLedgerAddress(p.UserAddress) {
		return pkgerrors.Wrapf(errors.ErrInvalidParams, "invalid user address %q", p.UserAddress)
	}
	if !ethcommon.IsHexAddress(p.DestinationAddress) {
		return pkgerrors.Wrapf(errors.ErrInvalidParams, "invalid destination address %q", p.DestinationAddress)
	}
	if p.TokenSymbol == "" {
		return pkgerrors.Wrap(errors.ErrInvalidParams, "token symbol required")
	}
	return nil
}

// ledgerAddressAlphabet is the base58 dictionary used by the source ledger's
// account format. It excludes 0, O, I and l.
const ledgerAddressAlphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

// IsLedgerAddress reports whether addr looks like a source-ledger account:
// an r-prefixed base58 string of plausible length.
func IsLedgerAddress(addr string) bool {
	if len(addr) < 25 || len(addr) > 35 || !strings.HasPrefix(addr, "r") {
		return false
	}
	for _, c := range addr {
		if !strings.ContainsRune(ledgerAddressAlphabet, c) {
			return false
		}
	}
	return true
}

// ParseAmount parses a decimal amount string into a big.Float.
func ParseAmount(s string) (*big.Float, error) {
	if s == "" {
		return nil, pkgerrors.New("empty amount")
	}
	f, ok := new(big.Float).SetString(s)
	if !ok {
		return nil, pkgerrors.Errorf("malformed amount %q", s)
	}
	return f, nil
}

// FormatAmount renders an amount the way the ledger reports balances,
// trimming trailing zeros.
func FormatAmount(f *big.Float) string {
	s := f.Text('f', 6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
