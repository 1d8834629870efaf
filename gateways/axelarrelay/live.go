package axelarrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const requestTimeout = 15 * time.Second

// Gateway is the live RelayGateway talking to the interchain messaging
// service's REST API. Every id it returns is minted by the relay service
// itself.
type Gateway struct {
	baseURL string
	client  *fasthttp.Client
	logger  *logrus.Logger
}

// NewGateway creates a live relay gateway against the given API base URL.
func NewGateway(baseURL string, logger *logrus.Logger) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		client: &fasthttp.Client{
			ReadTimeout:  requestTimeout,
			WriteTimeout: requestTimeout,
		},
		logger: logger,
	}
}

func (g *Gateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + path)
	req.Header.SetMethod(method)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	deadline := time.Now().Add(requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return errors.Wrapf(commonerrors.ErrUnregisteredToken, "relay returned 404 for %s", path)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return errors.Wrapf(commonerrors.ErrNetwork, "relay returned status %d for %s", resp.StatusCode(), path)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return errors.Wrap(err, "failed to decode relay response")
		}
	}
	return nil
}

// CheckTokenRegistration queries the relay's token registry.
func (g *Gateway) CheckTokenRegistration(ctx context.Context, symbol, sourceChain, destChain string) (*types.TokenRegistration, error) {
	var reg types.TokenRegistration
	path := fmt.Sprintf("/v1/tokens/%s?source=%s&destination=%s", symbol, sourceChain, destChain)
	if err := g.do(ctx, fasthttp.MethodGet, path, nil, &reg); err != nil {
		return nil, err
	}
	if !reg.Registered {
		return nil, errors.Wrapf(commonerrors.ErrUnregisteredToken,
			"%s is not bridgeable from %s to %s", symbol, sourceChain, destChain)
	}
	return &reg, nil
}

// EstimateFee asks the relay for an advisory fee quote.
func (g *Gateway) EstimateFee(ctx context.Context, params *types.TransferParams) (string, error) {
	var result struct {
		Fee string `json:"fee"`
	}
	err := g.do(ctx, fasthttp.MethodPost, "/v1/fee-estimate", map[string]string{
		"tokenSymbol":      params.TokenSymbol,
		"amount":           params.Amount,
		"sourceChain":      params.SourceChain,
		"destinationChain": params.DestinationChain,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Fee, nil
}

// RequestTransfer registers an interchain transfer intent.
func (g *Gateway) RequestTransfer(ctx context.Context, params *types.TransferParams, transferID string) (string, error) {
	var result struct {
		RequestID string `json:"requestId"`
	}
	err := g.do(ctx, fasthttp.MethodPost, "/v1/transfers", map[string]string{
		"transferId":         transferID,
		"tokenSymbol":        params.TokenSymbol,
		"amount":             params.Amount,
		"sourceChain":        params.SourceChain,
		"destinationChain":   params.DestinationChain,
		"sourceAddress":      params.UserAddress,
		"destinationAddress": params.DestinationAddress,
	}, &result)
	if err != nil {
		return "", err
	}
	g.logger.WithFields(logrus.Fields{
		"transferId": transferID,
		"requestId":  result.RequestID,
	}).Info("interchain transfer requested")
	return result.RequestID, nil
}

// TransmitMessage hands an encoded envelope to the relay.
func (g *Gateway) TransmitMessage(ctx context.Context, payload string) (string, error) {
	var result struct {
		MessageID string `json:"messageId"`
	}
	err := g.do(ctx, fasthttp.MethodPost, "/v1/messages", map[string]string{
		"payload": payload,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.MessageID, nil
}

// PollStatus fetches the current status snapshot for a request or message id.
func (g *Gateway) PollStatus(ctx context.Context, id string) (*types.RelayStatus, error) {
	var status types.RelayStatus
	if err := g.do(ctx, fasthttp.MethodGet, "/v1/status/"+id, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
