package addressrelay

import (
	"encoding/json"
	"fmt"

	"github.com/crosslane/bridge-orchestrator/common/types"
	errors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Server is the HTTP facade over an AddressStore.
//
// Routes:
// - POST /set-address: body {"address": "0x..."} stores the address, 200 "OK".
// - GET  /get-address: returns {"address": "0x..."} or {"address": null}.
type Server struct {
	store  types.AddressStore
	logger *logrus.Logger
	server *fasthttp.Server
}

// NewServer creates the facade around the given store.
func NewServer(store types.AddressStore, logger *logrus.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}
	s.server = &fasthttp.Server{
		Handler: s.handle,
		Name:    "address-relay",
	}
	return s
}

// ListenAndServe blocks serving on the given address until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.WithField("addr", addr).Info("address relay listening")
	if err := s.server.ListenAndServe(addr); err != nil {
		return errors.Wrap(err, "address relay server failed")
	}
	return nil
}

// Shutdown stops the server and clears the store so a stale address does not
// survive a restart.
func (s *Server) Shutdown() error {
	s.store.Clear()
	return s.server.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/set-address":
		s.handleSet(ctx)
	case "/get-address":
		s.handleGet(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

type setAddressRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleSet(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}

	var req setAddressRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Address == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		fmt.Fprint(ctx, "address is required")
		return
	}

	s.store.Set(req.Address)
	s.logger.WithField("address", req.Address).Info("destination address relayed")
	ctx.SetStatusCode(fasthttp.StatusOK)
	fmt.Fprint(ctx, "OK")
}

type getAddressResponse struct {
	Address *string `json:"address"`
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}

	var resp getAddressResponse
	if address, ok := s.store.Get(); ok {
		resp.Address = &address
	}

	body, err := json.Marshal(resp)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}
