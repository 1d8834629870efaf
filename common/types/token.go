package types

// TokenRegistration is the relay network's record of a token registered for
// bridging between two chains. Read-only reference data; the orchestrator
// never owns or mutates it.
type TokenRegistration struct {
	Symbol            string
	InterchainTokenID string
	SourceChain       string
	DestinationChain  string
	Registered        bool
}

// TokenInfo describes a token as known by the destination contract.
type TokenInfo struct {
	Symbol          string
	Decimals        uint8
	ContractAddress string
}
