package xrpledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	// rpcTimeout bounds a single JSON-RPC round trip.
	rpcTimeout = 10 * time.Second
	// dropsPerUnit is the number of drops in one native unit.
	dropsPerUnit = 1_000_000
)

// Config holds the ledger gateway connection settings.
//
// Fields:
// - Endpoint: the JSON-RPC URL of the ledger node.
// - SubmitBackoff: the fixed delay between sequence-window retries.
// - FinalityTimeout: how long to wait for a submitted transaction to reach
//   a validated ledger before giving up.
type Config struct {
	Endpoint        string
	SubmitBackoff   time.Duration
	FinalityTimeout time.Duration
}

// Gateway is the live LedgerGateway implementation speaking JSON-RPC to a
// source ledger node.
type Gateway struct {
	config *Config
	logger *logrus.Logger

	clientMutex sync.RWMutex
	client      *fasthttp.Client
	connected   bool
}

// NewGateway creates a live ledger gateway. The connection itself is
// established by Connect.
func NewGateway(config *Config, logger *logrus.Logger) *Gateway {
	if config.SubmitBackoff == 0 {
		config.SubmitBackoff = 2 * time.Second
	}
	if config.FinalityTimeout == 0 {
		config.FinalityTimeout = 60 * time.Second
	}
	return &Gateway{
		config: config,
		logger: logger,
	}
}

// Connect acquires the HTTP client and verifies the node answers a
// server_info request. Calling Connect on a connected gateway is a no-op.
func (g *Gateway) Connect(ctx context.Context) error {
	g.clientMutex.Lock()
	if g.connected {
		g.clientMutex.Unlock()
		return nil
	}
	g.client = &fasthttp.Client{
		ReadTimeout:  rpcTimeout,
		WriteTimeout: rpcTimeout,
	}
	g.connected = true
	g.clientMutex.Unlock()

	var info serverInfoResult
	if err := g.call(ctx, "server_info", map[string]interface{}{}, &info); err != nil {
		g.clientMutex.Lock()
		g.connected = false
		g.client = nil
		g.clientMutex.Unlock()
		return errors.Wrap(err, "failed to connect to ledger node")
	}

	g.logger.WithFields(logrus.Fields{
		"endpoint":    g.config.Endpoint,
		"serverState": info.Info.ServerState,
	}).Info("ledger connection established")

	return nil
}

// Disconnect releases the client. Safe to call repeatedly and from deferred
// cleanup around every pipeline run.
func (g *Gateway) Disconnect() error {
	g.clientMutex.Lock()
	defer g.clientMutex.Unlock()

	if !g.connected {
		return nil
	}
	g.client = nil
	g.connected = false
	g.logger.WithField("endpoint", g.config.Endpoint).Info("ledger connection released")
	return nil
}

// CheckConnection reports whether the node still answers. Used by the
// connection monitor.
func (g *Gateway) CheckConnection(ctx context.Context) error {
	var info serverInfoResult
	return g.call(ctx, "server_info", map[string]interface{}{}, &info)
}

// Reconnect re-establishes the connection after a health-check failure.
func (g *Gateway) Reconnect(ctx context.Context) error {
	if err := g.Disconnect(); err != nil {
		return err
	}
	return g.Connect(ctx)
}

type serverInfoResult struct {
	Info struct {
		ServerState     string `json:"server_state"`
		CompleteLedgers string `json:"complete_ledgers"`
	} `json:"info"`
}

// rpcRequest is the JSON-RPC envelope the ledger node expects: a method name
// and a single params object.
type rpcRequest struct {
	Method string                   `json:"method"`
	Params []map[string]interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
// Transport failures surface as ErrNetwork so the step runner classifies
// them uniformly.
func (g *Gateway) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	g.clientMutex.RLock()
	client := g.client
	connected := g.connected
	g.clientMutex.RUnlock()

	if !connected || client == nil {
		return commonerrors.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(&rpcRequest{Method: method, Params: []map[string]interface{}{params}})
	if err != nil {
		return errors.Wrap(err, "failed to marshal rpc request")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.config.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(rpcTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return errors.Wrapf(commonerrors.ErrNetwork, "ledger node returned status %d", resp.StatusCode())
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return errors.Wrap(err, "failed to decode rpc response")
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err == nil && status.Status == "error" {
		return errors.Errorf("ledger rpc error: %s (%s)", status.Error, status.ErrorMessage)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return errors.Wrap(err, "failed to decode rpc result")
		}
	}
	return nil
}
