package types

import (
	"math/big"
	"testing"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/pkg/errors"
)

func validParams() TransferParams {
	return TransferParams{
		SourceChain:        "xrpl-testnet",
		DestinationChain:   "ethereum-sepolia",
		SourceAddress:      "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
		UserAddress:        "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
		DestinationAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		TokenSymbol:        "XRP",
		Amount:             "10",
	}
}

func TestTransferParamsValidate(t *testing.T) {
	valid := validParams()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TransferParams)
	}{
		{"empty amount", func(p *TransferParams) { p.Amount = "" }},
		{"zero amount", func(p *TransferParams) { p.Amount = "0" }},
		{"negative amount", func(p *TransferParams) { p.Amount = "-5" }},
		{"malformed amount", func(p *TransferParams) { p.Amount = "ten" }},
		{"source without prefix", func(p *TransferParams) { p.SourceAddress = "xHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh" }},
		{"source too short", func(p *TransferParams) { p.SourceAddress = "rHb9" }},
		{"user address invalid", func(p *TransferParams) { p.UserAddress = "rIIIIIIIIIIIIIIIIIIIIIIIIIIIII" }},
		{"destination not hex", func(p *TransferParams) { p.DestinationAddress = "742d35Ccnothex" }},
		{"empty token", func(p *TransferParams) { p.TokenSymbol = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)
			if err := params.Validate(); !errors.Is(err, commonerrors.ErrInvalidParams) {
				t.Errorf("Validate error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestFormatAmountTrimsTrailingZeros(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10.500000", "10.5"},
		{"0.000012", "0.000012"},
		{"89.999988", "89.999988"},
		{"0", "0"},
	}

	for _, tt := range tests {
		f, ok := new(big.Float).SetString(tt.in)
		if !ok {
			t.Fatalf("bad test input %q", tt.in)
		}
		if got := FormatAmount(f); got != tt.want {
			t.Errorf("FormatAmount(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
