package types

// ChainVerification compares the expected and observed balance on one chain.
//
// Fields:
// - Chain: the chain the balances were read from.
// - Expected: the balance the transfer math predicts.
// - Observed: the balance actually read after the transfer.
// - Difference: absolute difference between the two.
// - Tolerance: the allowed band; fees on the source side make an exact
//   match impossible.
// - Verified: whether the difference stayed within tolerance.
type ChainVerification struct {
	Chain      string
	Expected   string
	Observed   string
	Difference string
	Tolerance  string
	Verified   bool
}

// VerificationRecord is the final cross-ledger reconciliation result.
// Computed fresh at the end of the pipeline and kept only in the session's
// report; a mismatch never reverts an already completed session.
type VerificationRecord struct {
	Source      ChainVerification
	Destination ChainVerification
	Verified    bool
}
