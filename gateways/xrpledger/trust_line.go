package xrpledger

import (
	"context"

	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/pkg/errors"
)

type accountLinesResult struct {
	Account string `json:"account"`
	Lines   []struct {
		Account  string `json:"account"`
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
		Limit    string `json:"limit"`
	} `json:"lines"`
}

// GetTrustLine returns the trust-line balance the address holds for the
// given currency against the counterparty, or ok=false when no such line is
// set. Used for issued-token reconciliation.
func (g *Gateway) GetTrustLine(ctx context.Context, address, counterparty, currency string) (*types.TrustLine, bool, error) {
	var lines accountLinesResult
	err := g.call(ctx, "account_lines", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}, &lines)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to get trust lines for %s", address)
	}

	for _, line := range lines.Lines {
		if line.Currency == currency && line.Account == counterparty {
			return &types.TrustLine{
				Counterparty: line.Account,
				Currency:     line.Currency,
				Balance:      line.Balance,
				Limit:        line.Limit,
			}, true, nil
		}
	}
	return nil, false, nil
}
