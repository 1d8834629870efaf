package axelarrelay

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EncodeTransferIntent wraps a transfer intent in the relay message envelope
// and encodes it for transmission. The nonce is minted fresh per call so the
// relay's replay detection never coalesces two distinct transmissions.
func EncodeTransferIntent(intent *types.TransferIntent) (string, error) {
	if intent.TransferID == "" {
		return "", errors.New("transfer intent missing transfer id")
	}

	envelope := &types.MessageEnvelope{
		Version:   types.PayloadVersion,
		Timestamp: time.Now().UnixMilli(),
		Type:      types.PayloadTypeTransfer,
		Data:      *intent,
		Nonce:     uuid.NewString(),
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode message envelope")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
