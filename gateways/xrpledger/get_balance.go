package xrpledger

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

type accountInfoResult struct {
	AccountData struct {
		Account  string `json:"Account"`
		Balance  string `json:"Balance"`
		Sequence uint32 `json:"Sequence"`
		Flags    uint32 `json:"Flags"`
	} `json:"account_data"`
	LedgerIndex uint64 `json:"ledger_index"`
}

// GetBalance returns the native-asset balance of the address as a decimal
// string. The ledger reports balances in drops; the result is converted to
// whole native units.
//
// Parameters:
// - ctx: the context for managing the request.
// - address: the ledger account to query.
//
// Returns:
// - string: the balance in native units.
// - error: ErrNetwork on transport failure, or a wrapped rpc error.
func (g *Gateway) GetBalance(ctx context.Context, address string) (string, error) {
	var info accountInfoResult
	err := g.call(ctx, "account_info", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}, &info)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get balance for %s", address)
	}

	balance, err := dropsToNative(info.AccountData.Balance)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert balance")
	}
	return balance, nil
}

// dropsToNative converts a drops-denominated integer string into a decimal
// native-unit string.
func dropsToNative(drops string) (string, error) {
	d, ok := new(big.Int).SetString(drops, 10)
	if !ok {
		return "", errors.Errorf("malformed drops value %q", drops)
	}
	f := new(big.Float).SetInt(d)
	f.Quo(f, big.NewFloat(dropsPerUnit))
	return trimDecimal(f.Text('f', 6)), nil
}

func trimDecimal(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	if i == 0 {
		return "0"
	}
	return s[:i]
}
