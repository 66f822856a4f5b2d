package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/qick-go/qick/internal/audit"
	"github.com/qick-go/qick/internal/auth"
	"github.com/qick-go/qick/internal/logging"
)

// Paths served by Server.
const (
	RPCPath    = "/rpc"
	HealthPath = "/health"
)

// Health is reported on HealthPath.
type Health struct {
	Mode    string   `json:"mode"`
	State   string   `json:"state"`
	Cause   string   `json:"cause,omitempty"`
	Exposed []string `json:"exposed"`
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Addr string
	// H2C serves HTTP/2 without TLS alongside HTTP/1.1.
	H2C bool
	// AllowedCIDRs restricts clients; empty allows everyone.
	AllowedCIDRs []string
	// Verifier enables bearer authentication on RPCPath when set.
	Verifier    *auth.Verifier
	ReadTimeout time.Duration
	Health      Health
	// Unbound, when set, answers every call with CodeUnavailable.
	Unbound error
	// Audit records every dispatched call when set.
	Audit *audit.Logger
}

// Server serves a Registry over JSON-RPC 2.0.
type Server struct {
	registry   *Registry
	logger     *log.Logger
	opts       ServerOptions
	allowed    []*net.IPNet
	httpServer *http.Server
}

// NewServer creates a server for registry.
func NewServer(registry *Registry, opts ServerOptions, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{registry: registry, logger: logger, opts: opts}
	for _, cidr := range opts.AllowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		s.allowed = append(s.allowed, network)
	}
	if s.opts.Health.Exposed == nil {
		s.opts.Health.Exposed = registry.Names()
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.ReadTimeout,
	}
	return s, nil
}

// Handler returns the complete HTTP handler, including access control.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RPCPath, s.HandleRequest)
	mux.HandleFunc(HealthPath, s.handleHealth)

	var h http.Handler = mux
	if s.opts.Verifier != nil {
		h = s.opts.Verifier.RequireAuth(h, HealthPath)
	}
	h = s.requireAllowedClient(h)
	if s.opts.H2C {
		h = h2c.NewHandler(h, &http2.Server{})
	}
	return h
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Printf("remote: serving %v on %s (h2c=%t, auth=%t)", s.registry.Names(), s.opts.Addr, s.opts.H2C, s.opts.Verifier != nil)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// HandleRequest handles HTTP POST requests to RPCPath
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}, nil)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, &Error{Code: CodeParseError, Message: "Parse error"}, nil)
		return
	}

	if req.JSONRPC != Version || req.Method == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}, req.ID)
		return
	}

	resp := s.processRequest(r.Context(), &req)
	if s.opts.Audit != nil {
		s.opts.Audit.Record(r.Context(), r.RemoteAddr, req.Method, auditCode(resp.Error), time.Since(start))
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Printf("remote: failed to encode response: %v", err)
		return
	}

	s.logger.Printf("remote: method=%s client=%s duration=%v", req.Method, r.RemoteAddr, time.Since(start))
}

func (s *Server) processRequest(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: Version, ID: req.ID}
	if s.opts.Unbound != nil {
		resp.Error = &Error{Code: CodeUnavailable, Message: "UNAVAILABLE", Data: s.opts.Unbound.Error()}
		return resp
	}

	result, err := s.registry.Call(ctx, req.Method, req.Params)
	if err != nil {
		var rpcErr *Error
		switch {
		case errors.Is(err, ErrNotExposed):
			resp.Error = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
		case errors.As(err, &rpcErr):
			resp.Error = rpcErr
		default:
			resp.Error = &Error{Code: CodeInternal, Message: "INTERNAL", Data: err.Error()}
		}
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: CodeInternal, Message: "INTERNAL", Data: err.Error()}
		return resp
	}
	resp.Result = data
	return resp
}

// auditCode names the outcome of a call for the audit log.
func auditCode(rpcErr *Error) string {
	if rpcErr == nil {
		return "SUCCESS"
	}
	switch rpcErr.Code {
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeMethodNotFound:
		return "NOT_EXPOSED"
	case CodeInvalidParams:
		return "INVALID_PARAMS"
	default:
		return "ERROR"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.opts.Health); err != nil {
		s.logger.Printf("remote: failed to encode health: %v", err)
	}
}

// requireAllowedClient rejects clients outside the allowed CIDRs.
func (s *Server) requireAllowedClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowed) > 0 && !s.isAllowed(r.RemoteAddr) {
			s.logger.Printf("remote: rejected client %s (not in allowed CIDRs)", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAllowed(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range s.allowed {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, status int, rpcErr *Error, id interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{JSONRPC: Version, Error: rpcErr, ID: id})
}
