package types

// SessionState represents the transfer pipeline's position in its linear
// state machine. A session only ever moves forward; FAILED is absorbing.
type SessionState string

const (
	StateInit                SessionState = "INIT"
	StateConnected           SessionState = "CONNECTED"
	StateBalancesChecked     SessionState = "BALANCES_CHECKED"
	StateSourceSettled       SessionState = "SOURCE_SETTLED"
	StateGatewayProcessed    SessionState = "GATEWAY_PROCESSED"
	StateBridgeRequested     SessionState = "BRIDGE_REQUESTED"
	StateMessageTransmitted  SessionState = "MESSAGE_TRANSMITTED"
	StateDestinationExecuted SessionState = "DESTINATION_EXECUTED"
	StateVerified            SessionState = "VERIFIED"
	StateCompleted           SessionState = "COMPLETED"
	StateFailed              SessionState = "FAILED"
)

// String converts SessionState to its string representation.
func (s SessionState) String() string {
	return string(s)
}

// Terminal reports whether the state ends the session lifecycle.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
