// Package report renders terminal transfer sessions into human-readable
// summaries and delivers completion notices to external sinks.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/crosslane/bridge-orchestrator/common/types"
)

const separator = "============================================================"

// Generate renders a textual summary of a transfer session. It is a pure
// function of the session: every attempted step appears in execution order,
// failed ones included, followed by the reconciliation outcome when the
// verification step ran.
func Generate(session *types.TransferSession) string {
	var b strings.Builder

	status := session.Status()
	results := session.Results()

	b.WriteString(separator + "\n")
	b.WriteString("TRANSFER REPORT\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Transfer ID:  %s\n", session.TransferID)
	fmt.Fprintf(&b, "Status:       %s\n", status)
	fmt.Fprintf(&b, "Created:      %s\n", session.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Token:        %s\n", session.Params.TokenSymbol)
	fmt.Fprintf(&b, "Amount:       %s\n", session.Params.Amount)
	fmt.Fprintf(&b, "Route:        %s -> %s\n", session.Params.SourceChain, session.Params.DestinationChain)
	fmt.Fprintf(&b, "Destination:  %s\n", session.Params.DestinationAddress)

	b.WriteString("\nSteps (" + fmt.Sprint(len(results)) + " attempted)\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %-24s %s  (%s)\n", i+1, result.Name, stepMark(result), result.Duration().Round(time.Millisecond))
		if result.Payload != "" {
			fmt.Fprintf(&b, "   payload: %s\n", result.Payload)
		}
		if !result.Success {
			fmt.Fprintf(&b, "   error [%s]: %s\n", result.Kind, result.Err)
		}
	}

	if verification := findVerification(results); verification != nil {
		b.WriteString("\nBalance Reconciliation\n")
		b.WriteString(strings.Repeat("-", 60) + "\n")
		writeChainVerification(&b, verification.Source)
		writeChainVerification(&b, verification.Destination)
		fmt.Fprintf(&b, "Overall: %s\n", verdict(verification.Verified))
	}

	b.WriteString(separator + "\n")
	return b.String()
}

func stepMark(result types.StepResult) string {
	if result.Success {
		return "OK"
	}
	return "FAILED"
}

func findVerification(results []types.StepResult) *types.VerificationRecord {
	for _, result := range results {
		if result.Verification != nil {
			return result.Verification
		}
	}
	return nil
}

func writeChainVerification(b *strings.Builder, v types.ChainVerification) {
	fmt.Fprintf(b, "%s: expected %s, observed %s (diff %s, tolerance %s) %s\n",
		v.Chain, v.Expected, v.Observed, v.Difference, v.Tolerance, verdict(v.Verified))
}

func verdict(ok bool) string {
	if ok {
		return "VERIFIED"
	}
	return "MISMATCH"
}
