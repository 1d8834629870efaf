package report

import (
	"context"
	"encoding/json"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const notifyTimeout = 10 * time.Second

// WebhookNotifier posts completion notices to a configured webhook URL. A
// delivery failure is the caller's to log; it never changes a session's
// terminal status.
type WebhookNotifier struct {
	url    string
	client *fasthttp.Client
	logger *logrus.Logger
}

// NewWebhookNotifier creates a notifier targeting the given URL.
func NewWebhookNotifier(url string, logger *logrus.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &fasthttp.Client{
			ReadTimeout:  notifyTimeout,
			WriteTimeout: notifyTimeout,
		},
		logger: logger,
	}
}

type noticeBody struct {
	TransferID  string `json:"transferId"`
	Status      string `json:"status"`
	TokenSymbol string `json:"tokenSymbol"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Verified    bool   `json:"verified"`
	NotifiedAt  int64  `json:"notifiedAt"`
}

// Notify delivers the completion notice as a JSON POST.
func (n *WebhookNotifier) Notify(ctx context.Context, notice *types.CompletionNotice) error {
	body, err := json.Marshal(noticeBody{
		TransferID:  notice.TransferID,
		Status:      notice.Status,
		TokenSymbol: notice.TokenSymbol,
		Amount:      notice.Amount,
		Destination: notice.Destination,
		Verified:    notice.Verified,
		NotifiedAt:  time.Now().UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode completion notice")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(notifyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := n.client.DoDeadline(req, resp, deadline); err != nil {
		return errors.Wrapf(commonerrors.ErrNetwork, "webhook delivery failed: %v", err)
	}
	if resp.StatusCode() >= 300 {
		return errors.Wrapf(commonerrors.ErrNetwork, "webhook returned status %d", resp.StatusCode())
	}

	n.logger.WithFields(logrus.Fields{
		"transferId": notice.TransferID,
		"status":     notice.Status,
	}).Debug("completion notice delivered")
	return nil
}
