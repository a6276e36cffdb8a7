// Package rpc implements the JSON-RPC 2.0 API served by rgbd.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-rgb/config"
	"github.com/Klingon-tech/klingnet-rgb/internal/issuer"
	klog "github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/registry"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

const (
	// maxBodySize caps a request body at 1 MB.
	maxBodySize = 1 << 20

	shutdownTimeout = 5 * time.Second
)

type handlerFunc func(*Server, *Request) (interface{}, *Error)

// methods routes JSON-RPC method names to handlers.
var methods = map[string]handlerFunc{
	"fungible_issue":              (*Server).handleFungibleIssue,
	"fungible_transfer":           (*Server).handleFungibleTransfer,
	"fungible_importGenesis":      (*Server).handleFungibleImportGenesis,
	"fungible_importGenesisBatch": (*Server).handleFungibleImportGenesisBatch,
	"asset_list":                  (*Server).handleAssetList,
	"asset_get":                   (*Server).handleAssetGet,
	"asset_allocations":           (*Server).handleAssetAllocations,
	"asset_addAllocation":         (*Server).handleAssetAddAllocation,
	"asset_removeAllocation":      (*Server).handleAssetRemoveAllocation,
}

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr     string
	network  types.Chain
	registry *registry.Registry
	issuer   *issuer.Issuer
	logger   zerolog.Logger

	httpServer *http.Server
	ln         net.Listener

	allowed []netip.Prefix // empty allows every client
	origins []string       // empty sends no CORS headers
}

// New creates an RPC server for the assets of one network. An optional
// RPCConfig enables IP filtering and CORS.
func New(addr string, network types.Chain, reg *registry.Registry, iss *issuer.Issuer, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:     addr,
		network:  network,
		registry: reg,
		issuer:   iss,
		logger:   klog.RPC,
	}
	if len(rpcCfg) > 0 {
		s.allowed = parsePrefixes(rpcCfg[0].AllowedIPs)
		s.origins = rpcCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.Handle("/", s.filterIP(s.withCORS(http.HandlerFunc(s.serveRPC))))
	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// parsePrefixes reads IP and CIDR entries. A bare IP becomes a
// single-address prefix. Invalid entries are skipped.
func parsePrefixes(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, entry := range entries {
		if p, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return out
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln
	s.logger.Info().Str("addr", ln.Addr().String()).Str("network", s.network.String()).Msg("RPC server listening")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// filterIP rejects clients outside the allowed prefixes.
func (s *Server) filterIP(next http.Handler) http.Handler {
	if len(s.allowed) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ap, err := netip.ParseAddrPort(r.RemoteAddr)
		if err != nil || !s.ipAllowed(ap.Addr()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ipAllowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	return slices.ContainsFunc(s.allowed, func(p netip.Prefix) bool { return p.Contains(addr) })
}

// withCORS sets CORS headers for allowed origins and answers preflight
// requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && len(s.origins) > 0 {
			allow := ""
			switch {
			case slices.Contains(s.origins, "*"):
				allow = "*"
			case slices.Contains(s.origins, origin):
				allow = origin
			}
			if allow != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allow)
				h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// serveRPC decodes one JSON-RPC request and writes its response.
func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	req, rpcErr := readRequest(r)
	if rpcErr != nil {
		var id interface{}
		if req != nil {
			id = req.ID
		}
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: id})
		return
	}

	result, rpcErr := s.dispatch(req)
	if rpcErr != nil {
		s.logger.Debug().
			Str("method", req.Method).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("RPC request failed")
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// readRequest validates the HTTP envelope and decodes the request. The
// request is returned alongside an error once its ID is known.
func readRequest(r *http.Request) (*Request, *Error) {
	if r.Method != http.MethodPost {
		return nil, &Error{Code: CodeInvalidRequest, Message: "only POST method is allowed"}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, &Error{Code: CodeParseError, Message: "failed to read request body"}
	}
	if len(body) > maxBodySize {
		return nil, &Error{Code: CodeInvalidRequest, Message: "request body too large"}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "invalid JSON"}
	}
	if req.JSONRPC != "2.0" {
		return &req, &Error{Code: CodeInvalidRequest, Message: `jsonrpc must be "2.0"`}
	}
	return &req, nil
}

// dispatch routes a request to its handler.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	h, ok := methods[req.Method]
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
	return h(s, req)
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		klog.RPC.Warn().Err(err).Msg("Writing response")
	}
}

// parseParams decodes the request params into target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
