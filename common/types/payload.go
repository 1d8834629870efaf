package types

// Relay message envelope constants. The destination executor rejects any
// payload whose version or type does not match.
const (
	PayloadVersion      = "1.0"
	PayloadTypeTransfer = "cross_chain_transfer"
)

// TransferIntent is the data carried inside a relayed message: everything
// the destination contract needs to mint for the right recipient.
type TransferIntent struct {
	TokenSymbol        string            `json:"tokenSymbol"`
	Amount             string            `json:"amount"`
	SourceAddress      string            `json:"sourceAddress"`
	DestinationAddress string            `json:"destinationAddress"`
	TransferID         string            `json:"transferId"`
	SourceChain        string            `json:"sourceChain,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// MessageEnvelope is the structural wrapper around a TransferIntent as it
// crosses the relay network. The nonce exists solely to defeat trivial
// payload-replay detection on the relay side; it carries no cryptographic
// guarantee by itself.
type MessageEnvelope struct {
	Version   string         `json:"version"`
	Timestamp int64          `json:"timestamp"`
	Type      string         `json:"type"`
	Data      TransferIntent `json:"data"`
	Nonce     string         `json:"nonce"`
}
