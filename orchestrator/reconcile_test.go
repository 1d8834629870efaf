package orchestrator

import (
	"testing"

	"github.com/crosslane/bridge-orchestrator/common/types"
)

func TestReconcileBalances(t *testing.T) {
	params := types.TransferParams{
		SourceChain:      "xrpl-testnet",
		DestinationChain: "ethereum-sepolia",
		Amount:           "10",
		OriginalBalance:  "100",
	}

	tests := []struct {
		name           string
		sourceObserved string
		destObserved   string
		tolerance      string
		wantVerified   bool
		wantSourceOK   bool
		wantDestOK     bool
	}{
		{
			name:           "exact match",
			sourceObserved: "90",
			destObserved:   "10",
			tolerance:      "0.1",
			wantVerified:   true,
			wantSourceOK:   true,
			wantDestOK:     true,
		},
		{
			name:           "fees within tolerance",
			sourceObserved: "89.999988",
			destObserved:   "10",
			tolerance:      "0.1",
			wantVerified:   true,
			wantSourceOK:   true,
			wantDestOK:     true,
		},
		{
			name:           "source breach",
			sourceObserved: "89.5",
			destObserved:   "10",
			tolerance:      "0.1",
			wantVerified:   false,
			wantSourceOK:   false,
			wantDestOK:     true,
		},
		{
			name:           "destination short",
			sourceObserved: "90",
			destObserved:   "9",
			tolerance:      "0.1",
			wantVerified:   false,
			wantSourceOK:   true,
			wantDestOK:     false,
		},
		{
			name:           "boundary difference equals tolerance",
			sourceObserved: "89.9",
			destObserved:   "10",
			tolerance:      "0.1",
			wantVerified:   true,
			wantSourceOK:   true,
			wantDestOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ReconcileBalances(params, tt.sourceObserved, tt.destObserved, tt.tolerance)
			if err != nil {
				t.Fatalf("ReconcileBalances: %v", err)
			}
			if record.Verified != tt.wantVerified {
				t.Errorf("Verified = %t, want %t", record.Verified, tt.wantVerified)
			}
			if record.Source.Verified != tt.wantSourceOK {
				t.Errorf("Source.Verified = %t, want %t (diff %s)", record.Source.Verified, tt.wantSourceOK, record.Source.Difference)
			}
			if record.Destination.Verified != tt.wantDestOK {
				t.Errorf("Destination.Verified = %t, want %t (diff %s)", record.Destination.Verified, tt.wantDestOK, record.Destination.Difference)
			}
			if record.Source.Expected != "90" {
				t.Errorf("Source.Expected = %s, want 90", record.Source.Expected)
			}
		})
	}
}

func TestReconcileBalancesRejectsMalformedInputs(t *testing.T) {
	params := types.TransferParams{Amount: "10", OriginalBalance: "100"}

	if _, err := ReconcileBalances(params, "not-a-number", "10", "0.1"); err == nil {
		t.Error("malformed source balance accepted")
	}
	if _, err := ReconcileBalances(params, "90", "10", "wide"); err == nil {
		t.Error("malformed tolerance accepted")
	}

	params.OriginalBalance = ""
	if _, err := ReconcileBalances(params, "90", "10", "0.1"); err == nil {
		t.Error("missing original balance accepted")
	}
}

func TestReconcileBalancesDefaultTolerance(t *testing.T) {
	params := types.TransferParams{
		SourceChain:      "xrpl-testnet",
		DestinationChain: "ethereum-sepolia",
		Amount:           "10",
		OriginalBalance:  "100",
	}

	record, err := ReconcileBalances(params, "89.95", "10", "")
	if err != nil {
		t.Fatalf("ReconcileBalances: %v", err)
	}
	if !record.Verified {
		t.Errorf("default tolerance rejected a 0.05 difference (tolerance %s)", record.Source.Tolerance)
	}
}
