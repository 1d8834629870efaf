package orchestrator

import (
	"math/big"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
)

// defaultTolerance absorbs network fees burned on the source ledger during
// settlement when checking the post-transfer balance.
const defaultTolerance = "0.1"

// ReconcileBalances compares observed post-transfer balances against the
// expectations derived from the transfer parameters.
//
// Parameters:
//   - params: the transfer parameters, including the pre-transfer source balance
//   - sourceObserved: the source address balance read after settlement
//   - destObserved: the destination address token balance read after execution
//   - tolerance: the absolute difference accepted on either chain
//
// Returns:
//   - *types.VerificationRecord: the per-chain comparison outcome
//   - error: non-nil only when the inputs cannot be parsed as amounts
func ReconcileBalances(params types.TransferParams, sourceObserved, destObserved, tolerance string) (*types.VerificationRecord, error) {
	if tolerance == "" {
		tolerance = defaultTolerance
	}
	tol, err := types.ParseAmount(tolerance)
	if err != nil {
		return nil, errors.Wrapf(commonerrors.ErrInvalidParams, "invalid tolerance %q", tolerance)
	}

	amount, err := types.ParseAmount(params.Amount)
	if err != nil {
		return nil, errors.Wrapf(commonerrors.ErrInvalidParams, "invalid amount %q", params.Amount)
	}
	original, err := types.ParseAmount(params.OriginalBalance)
	if err != nil {
		return nil, errors.Wrapf(commonerrors.ErrInvalidParams, "invalid original balance %q", params.OriginalBalance)
	}

	sourceExpected := new(big.Float).Sub(original, amount)

	source, err := compareBalance(params.SourceChain, sourceExpected, sourceObserved, tol)
	if err != nil {
		return nil, err
	}
	dest, err := compareBalance(params.DestinationChain, amount, destObserved, tol)
	if err != nil {
		return nil, err
	}

	return &types.VerificationRecord{
		Source:      source,
		Destination: dest,
		Verified:    source.Verified && dest.Verified,
	}, nil
}

func compareBalance(chain string, expected *big.Float, observed string, tolerance *big.Float) (types.ChainVerification, error) {
	obs, err := types.ParseAmount(observed)
	if err != nil {
		return types.ChainVerification{}, errors.Wrapf(commonerrors.ErrInvalidParams, "invalid observed balance %q on %s", observed, chain)
	}

	diff := new(big.Float).Sub(expected, obs)
	absDiff := new(big.Float).Abs(diff)

	return types.ChainVerification{
		Chain:      chain,
		Expected:   types.FormatAmount(expected),
		Observed:   types.FormatAmount(obs),
		Difference: types.FormatAmount(absDiff),
		Tolerance:  types.FormatAmount(tolerance),
		Verified:   absDiff.Cmp(tolerance) <= 0,
	}, nil
}
