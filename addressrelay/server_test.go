package addressrelay

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func doRequest(t *testing.T, server *Server, method, path, body string) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.SetRequestURI(path)
	req.Header.SetMethod(method)
	if body != "" {
		req.SetBodyString(body)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	server.handle(&ctx)
	return &ctx
}

func TestSetAndGetAddress(t *testing.T) {
	server := NewServer(NewMemoryStore(), testLogger())

	ctx := doRequest(t, server, "POST", "/set-address", `{"address":"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("set status = %d, want 200", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Body()); got != "OK" {
		t.Errorf("set body = %q, want OK", got)
	}

	ctx = doRequest(t, server, "GET", "/get-address", "")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("get status = %d, want 200", ctx.Response.StatusCode())
	}
	var resp struct {
		Address *string `json:"address"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal get response: %v", err)
	}
	if resp.Address == nil || *resp.Address != "0x742d35Cc6634C0532925a3b844Bc454e4438f44e" {
		t.Errorf("address = %v, want the stored address", resp.Address)
	}
}

func TestGetAddressBeforeAnySet(t *testing.T) {
	server := NewServer(NewMemoryStore(), testLogger())

	ctx := doRequest(t, server, "GET", "/get-address", "")
	var resp struct {
		Address *string `json:"address"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("unmarshal get response: %v", err)
	}
	if resp.Address != nil {
		t.Errorf("address = %v, want null", *resp.Address)
	}
}

func TestSetAddressValidation(t *testing.T) {
	server := NewServer(NewMemoryStore(), testLogger())

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "address=0xabc"},
		{"missing address", `{"other":"value"}`},
		{"empty address", `{"address":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := doRequest(t, server, "POST", "/set-address", tt.body)
			if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
				t.Errorf("status = %d, want 400", ctx.Response.StatusCode())
			}
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	server := NewServer(store, testLogger())

	doRequest(t, server, "POST", "/set-address", `{"address":"0x1111111111111111111111111111111111111111"}`)
	doRequest(t, server, "POST", "/set-address", `{"address":"0x2222222222222222222222222222222222222222"}`)

	address, ok := store.Get()
	if !ok || address != "0x2222222222222222222222222222222222222222" {
		t.Errorf("address = %q, want the second write", address)
	}

	store.Clear()
	if _, ok := store.Get(); ok {
		t.Error("address survived Clear")
	}
}

func TestMethodAndRouteHandling(t *testing.T) {
	server := NewServer(NewMemoryStore(), testLogger())

	if ctx := doRequest(t, server, "GET", "/set-address", ""); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Errorf("GET /set-address status = %d, want 405", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, server, "POST", "/get-address", ""); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Errorf("POST /get-address status = %d, want 405", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, server, "GET", "/unknown", ""); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Errorf("GET /unknown status = %d, want 404", ctx.Response.StatusCode())
	}
}
