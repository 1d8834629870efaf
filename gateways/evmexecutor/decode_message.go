package evmexecutor

import (
	"encoding/base64"
	"encoding/json"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// DecodeTransferMessage decodes a relayed payload and validates its
// structural envelope. A missing version, type or data section, or a type
// other than the transfer type, fails with ErrMalformedMessage — that
// usually flags a protocol-version mismatch worth investigating, not a
// transient fault.
func DecodeTransferMessage(payload string) (*types.TransferIntent, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrMalformedMessage, "payload is not valid base64")
	}

	var envelope types.MessageEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(commonerrors.ErrMalformedMessage, "payload is not a message envelope")
	}

	if envelope.Version == "" {
		return nil, errors.Wrap(commonerrors.ErrMalformedMessage, "envelope missing version")
	}
	if envelope.Version != types.PayloadVersion {
		return nil, errors.Wrapf(commonerrors.ErrMalformedMessage,
			"unsupported envelope version %q", envelope.Version)
	}
	if envelope.Type != types.PayloadTypeTransfer {
		return nil, errors.Wrapf(commonerrors.ErrMalformedMessage,
			"unexpected message type %q", envelope.Type)
	}

	intent := envelope.Data
	if intent.TransferID == "" || intent.TokenSymbol == "" || intent.Amount == "" {
		return nil, errors.Wrap(commonerrors.ErrMalformedMessage, "envelope data section incomplete")
	}
	if !ethcommon.IsHexAddress(intent.DestinationAddress) {
		return nil, errors.Wrapf(commonerrors.ErrMalformedMessage,
			"invalid destination address %q", intent.DestinationAddress)
	}

	return &intent, nil
}
