package orchestrator

import (
	"context"
	"io"
	"testing"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/crosslane/bridge-orchestrator/gateways/axelarrelay"
	"github.com/crosslane/bridge-orchestrator/gateways/evmexecutor"
	"github.com/crosslane/bridge-orchestrator/gateways/signing"
	"github.com/crosslane/bridge-orchestrator/gateways/xrpledger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	testSourceAddress      = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	testUserAddress        = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
	testGatewayAddress     = "rU6K7V3Po4snVhBBaU29sesqs2qTQJWDw1"
	testDestinationAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	testLedgerFee          = "0.000012"
)

var expectedStepOrder = []string{
	StepLedgerConnection,
	StepBalanceCheck,
	StepSourceSettlement,
	StepGatewayHandoff,
	StepBridgeRequest,
	StepMessageTransmission,
	StepDestinationExecution,
	StepFinalVerification,
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testParams() types.TransferParams {
	return types.TransferParams{
		SourceChain:        "xrpl-testnet",
		DestinationChain:   "ethereum-sepolia",
		SourceAddress:      testSourceAddress,
		UserAddress:        testUserAddress,
		DestinationAddress: testDestinationAddress,
		TokenSymbol:        "XRP",
		Amount:             "10",
	}
}

type testWorld struct {
	ledger      *xrpledger.Simulator
	relay       *axelarrelay.Simulator
	destination *evmexecutor.Simulator
	signer      *signing.LocalSigner
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()

	signer, err := signing.NewLocalSigner("test-seed")
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}

	world := &testWorld{
		ledger:      xrpledger.NewSimulator(testLedgerFee),
		relay:       axelarrelay.NewSimulator("0.001"),
		destination: evmexecutor.NewSimulator(),
		signer:      signer,
	}

	params := testParams()
	world.ledger.Fund(params.SourceAddress, "100")
	world.ledger.Fund(params.UserAddress, "20")
	world.relay.RegisterToken(params.TokenSymbol, params.SourceChain, params.DestinationChain)
	world.destination.SupportToken(types.TokenInfo{Symbol: params.TokenSymbol, Decimals: 18})

	return world
}

func (w *testWorld) buildOrchestrator(t *testing.T, destination types.DestinationExecutor) *Orchestrator {
	t.Helper()
	if destination == nil {
		destination = w.destination
	}

	orch, err := NewBuilder(&Config{
		GatewayAddress:    testGatewayAddress,
		StepTimeout:       5 * time.Second,
		SubmitMaxAttempts: 3,
		RelayPollInterval: time.Millisecond,
	}).
		WithLedgerGateway(w.ledger).
		WithRelayGateway(w.relay).
		WithDestinationExecutor(destination).
		WithSigner(w.signer).
		WithLogger(testLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return orch
}

func stepNames(results []types.StepResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return names
}

func TestExecuteCompletesPipeline(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateCompleted {
		t.Fatalf("status = %s, want %s", got, types.StateCompleted)
	}

	results := session.Results()
	if len(results) != len(expectedStepOrder) {
		t.Fatalf("got %d step results, want %d: %v", len(results), len(expectedStepOrder), stepNames(results))
	}
	for i, name := range expectedStepOrder {
		if results[i].Name != name {
			t.Errorf("step %d = %s, want %s", i, results[i].Name, name)
		}
		if !results[i].Success {
			t.Errorf("step %s failed: %s", results[i].Name, results[i].Err)
		}
	}

	verification, ok := session.Result(StepFinalVerification)
	if !ok || verification.Verification == nil {
		t.Fatal("no verification record on the final step")
	}
	record := verification.Verification
	if !record.Verified {
		t.Errorf("reconciliation not verified: source diff %s, dest diff %s",
			record.Source.Difference, record.Destination.Difference)
	}
	if record.Source.Expected != "90" {
		t.Errorf("source expected = %s, want 90", record.Source.Expected)
	}
	if record.Destination.Observed != "10" {
		t.Errorf("destination observed = %s, want 10", record.Destination.Observed)
	}

	if world.ledger.Connected() {
		t.Error("ledger still connected after the run")
	}
}

func TestExecuteInsufficientFundsAbortsAtSettlement(t *testing.T) {
	world := newTestWorld(t)
	world.ledger.Fund(testSourceAddress, "5")
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	results := session.Results()
	if len(results) != 3 {
		t.Fatalf("got %d step results, want 3: %v", len(results), stepNames(results))
	}

	settlement := results[2]
	if settlement.Name != StepSourceSettlement {
		t.Fatalf("last step = %s, want %s", settlement.Name, StepSourceSettlement)
	}
	if settlement.Success {
		t.Fatal("settlement succeeded with insufficient funds")
	}
	if settlement.Kind != commonerrors.KindInsufficientFunds {
		t.Errorf("kind = %s, want %s", settlement.Kind, commonerrors.KindInsufficientFunds)
	}

	// Earlier successes must be preserved on the failed session.
	if !results[0].Success || !results[1].Success {
		t.Error("prior step results were not preserved")
	}
}

func TestExecuteUnregisteredTokenAbortsAtBridgeRequest(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, nil)

	params := testParams()
	params.TokenSymbol = "DOGE"

	session, err := orch.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	results := session.Results()
	last := results[len(results)-1]
	if last.Name != StepBridgeRequest {
		t.Fatalf("last step = %s, want %s", last.Name, StepBridgeRequest)
	}
	if last.Kind != commonerrors.KindUnregisteredToken {
		t.Errorf("kind = %s, want %s", last.Kind, commonerrors.KindUnregisteredToken)
	}
}

// duplicateExecutor simulates a destination contract that already processed
// the transfer: every Execute call reports a duplicate but the balance is
// already in place.
type duplicateExecutor struct {
	*evmexecutor.Simulator
	amount string
}

func (d *duplicateExecutor) Execute(_ context.Context, intent *types.TransferIntent) (*types.ExecutionResult, error) {
	return nil, errors.Wrapf(commonerrors.ErrDuplicateExecution, "transfer %s already executed", intent.TransferID)
}

func (d *duplicateExecutor) GetTokenBalance(_ context.Context, _, _ string) (string, error) {
	return d.amount, nil
}

func TestExecuteDuplicateExecutionTreatedAsSettled(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, &duplicateExecutor{Simulator: world.destination, amount: "10"})

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateCompleted {
		t.Fatalf("status = %s, want %s", got, types.StateCompleted)
	}

	execution, ok := session.Result(StepDestinationExecution)
	if !ok {
		t.Fatal("no destination execution result")
	}
	if !execution.Success {
		t.Error("duplicate execution was not treated as success")
	}
	if execution.Kind != commonerrors.KindDuplicateExecution {
		t.Errorf("kind = %s, want %s", execution.Kind, commonerrors.KindDuplicateExecution)
	}
}

func TestExecuteRevertedExecutionFails(t *testing.T) {
	world := newTestWorld(t)
	world.destination.RevertNextExecution()
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	execution, ok := session.Result(StepDestinationExecution)
	if !ok {
		t.Fatal("no destination execution result")
	}
	if execution.Kind != commonerrors.KindExecution {
		t.Errorf("kind = %s, want %s", execution.Kind, commonerrors.KindExecution)
	}
	if _, ok := session.Result(StepFinalVerification); ok {
		t.Error("verification ran after a fatal execution failure")
	}
}

func TestExecuteRetriesSequenceWindowExpiry(t *testing.T) {
	world := newTestWorld(t)
	world.ledger.FailSubmissionsWithSequenceError(2)
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateCompleted {
		t.Fatalf("status = %s, want %s", got, types.StateCompleted)
	}

	// Settlement burned two failed attempts plus one success, the gateway
	// hand-off one more.
	if got := world.ledger.SubmitAttempts(); got != 4 {
		t.Errorf("submit attempts = %d, want 4", got)
	}
}

func TestExecuteSequenceRetryBudgetExhausted(t *testing.T) {
	world := newTestWorld(t)
	world.ledger.FailSubmissionsWithSequenceError(3)
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	settlement, ok := session.Result(StepSourceSettlement)
	if !ok {
		t.Fatal("no settlement result")
	}
	if settlement.Success {
		t.Fatal("settlement succeeded past an exhausted retry budget")
	}
	if got := world.ledger.SubmitAttempts(); got != 3 {
		t.Errorf("submit attempts = %d, want 3", got)
	}
}

func TestExecuteCancelledBeforeFirstStep(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, err := orch.Execute(ctx, testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	results := session.Results()
	if len(results) != 1 {
		t.Fatalf("got %d step results, want 1", len(results))
	}
	if results[0].Kind != commonerrors.KindCancelled {
		t.Errorf("kind = %s, want %s", results[0].Kind, commonerrors.KindCancelled)
	}
}

func TestExecuteRejectsInvalidParams(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, nil)

	tests := []struct {
		name   string
		mutate func(*types.TransferParams)
	}{
		{"zero amount", func(p *types.TransferParams) { p.Amount = "0" }},
		{"malformed amount", func(p *types.TransferParams) { p.Amount = "ten" }},
		{"bad source address", func(p *types.TransferParams) { p.SourceAddress = "xrp123" }},
		{"bad destination address", func(p *types.TransferParams) { p.DestinationAddress = "not-hex" }},
		{"missing token", func(p *types.TransferParams) { p.TokenSymbol = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			tt.mutate(&params)
			if _, err := orch.Execute(context.Background(), params); !errors.Is(err, commonerrors.ErrInvalidParams) {
				t.Errorf("Execute error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

type captureSink struct {
	notices []*types.CompletionNotice
}

func (c *captureSink) Notify(_ context.Context, notice *types.CompletionNotice) error {
	c.notices = append(c.notices, notice)
	return nil
}

func TestExecuteNotifiesOnCompletion(t *testing.T) {
	world := newTestWorld(t)
	sink := &captureSink{}

	orch, err := NewBuilder(&Config{
		GatewayAddress:    testGatewayAddress,
		RelayPollInterval: time.Millisecond,
	}).
		WithLedgerGateway(world.ledger).
		WithRelayGateway(world.relay).
		WithDestinationExecutor(world.destination).
		WithSigner(world.signer).
		WithNotifier(sink).
		WithLogger(testLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(sink.notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(sink.notices))
	}
	notice := sink.notices[0]
	if notice.TransferID != session.TransferID {
		t.Errorf("notice transfer id = %s, want %s", notice.TransferID, session.TransferID)
	}
	if notice.Status != types.StateCompleted.String() {
		t.Errorf("notice status = %s, want %s", notice.Status, types.StateCompleted)
	}
	if !notice.Verified {
		t.Error("notice not marked verified")
	}
}

func TestSessionRegistryTracksRuns(t *testing.T) {
	world := newTestWorld(t)
	orch := world.buildOrchestrator(t, nil)

	session, err := orch.Execute(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := orch.Sessions().Get(session.TransferID)
	if err != nil {
		t.Fatalf("registry Get: %v", err)
	}
	if got != session {
		t.Error("registry returned a different session")
	}

	if _, err := orch.Sessions().Get("its-0-missing"); !errors.Is(err, commonerrors.ErrSessionNotFound) {
		t.Errorf("missing session error = %v, want ErrSessionNotFound", err)
	}

	orch.Sessions().Remove(session.TransferID)
	if _, err := orch.Sessions().Get(session.TransferID); err == nil {
		t.Error("session still present after Remove")
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	world := newTestWorld(t)

	_, err := NewBuilder(&Config{GatewayAddress: testGatewayAddress}).
		WithRelayGateway(world.relay).
		WithDestinationExecutor(world.destination).
		WithSigner(world.signer).
		Build()
	if !errors.Is(err, commonerrors.ErrInvalidParams) {
		t.Errorf("Build without ledger gateway: error = %v, want ErrInvalidParams", err)
	}

	_, err = NewBuilder(&Config{}).
		WithLedgerGateway(world.ledger).
		WithRelayGateway(world.relay).
		WithDestinationExecutor(world.destination).
		WithSigner(world.signer).
		Build()
	if !errors.Is(err, commonerrors.ErrInvalidParams) {
		t.Errorf("Build without gateway address: error = %v, want ErrInvalidParams", err)
	}
}

func TestExecuteIssuedTokenReconcilesViaTrustLine(t *testing.T) {
	world := newTestWorld(t)
	params := testParams()
	params.TokenSymbol = "USD"
	params.OriginalBalance = "100"

	world.relay.RegisterToken(params.TokenSymbol, params.SourceChain, params.DestinationChain)
	world.destination.SupportToken(types.TokenInfo{Symbol: params.TokenSymbol, Decimals: 18})
	world.ledger.SetTrustLine(testSourceAddress, types.TrustLine{
		Counterparty: testGatewayAddress,
		Currency:     params.TokenSymbol,
		Balance:      "90",
		Limit:        "1000000",
	})

	orch := world.buildOrchestrator(t, nil)
	session, err := orch.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := session.Status(); got != types.StateCompleted {
		t.Fatalf("status = %s, want %s", got, types.StateCompleted)
	}

	verification, ok := session.Result(StepFinalVerification)
	if !ok || verification.Verification == nil {
		t.Fatal("missing final verification record")
	}
	record := verification.Verification
	if record.Source.Observed != "90" {
		t.Fatalf("source observed = %s, want the trust line balance 90", record.Source.Observed)
	}
	if record.Source.Expected != "90" {
		t.Fatalf("source expected = %s, want 90", record.Source.Expected)
	}
	if !record.Verified {
		t.Fatalf("record not verified: %+v", record)
	}
}

func TestExecuteIssuedTokenWithoutTrustLineFails(t *testing.T) {
	world := newTestWorld(t)
	params := testParams()
	params.TokenSymbol = "USD"
	params.OriginalBalance = "100"

	world.relay.RegisterToken(params.TokenSymbol, params.SourceChain, params.DestinationChain)
	world.destination.SupportToken(types.TokenInfo{Symbol: params.TokenSymbol, Decimals: 18})

	orch := world.buildOrchestrator(t, nil)
	session, err := orch.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := session.Status(); got != types.StateFailed {
		t.Fatalf("status = %s, want %s", got, types.StateFailed)
	}

	results := session.Results()
	last := results[len(results)-1]
	if last.Name != StepBalanceCheck || last.Success {
		t.Fatalf("last step = %s success=%t, want a failed %s", last.Name, last.Success, StepBalanceCheck)
	}
}
