package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"squadmint/internal/adminauth"
	"squadmint/internal/config"
	"squadmint/internal/faults"
	"squadmint/internal/ledger"
	"squadmint/internal/payments"
)

// ContractReads is the slice of the contract surface the storefront needs
// for display. Reads go straight to the node on every request; the caller
// decides how often to poll.
type ContractReads interface {
	Price(ctx context.Context) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	MaxSupply(ctx context.Context) (*big.Int, error)
}

type Server struct {
	cfg         *config.Config
	payments    *payments.Service
	reads       ContractReads
	store       ledger.Store
	recon       *payments.Reconciler
	admin       *adminauth.Verifier
	httpServer  *http.Server
	metrics     *metricsRegistry
	dbHealthFn  func(context.Context) error
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.Config, svc *payments.Service, reads ContractReads, store ledger.Store, recon *payments.Reconciler) *Server {
	adminVerifier := &adminauth.Verifier{
		Secret:  cfg.Admin.HMACSecret,
		MaxSkew: cfg.Admin.ClockSkew,
	}

	metrics := newMetricsRegistry()

	s := &Server{
		cfg:      cfg,
		payments: svc,
		reads:    reads,
		store:    store,
		recon:    recon,
		admin:    adminVerifier,
		metrics:  metrics,
	}

	if checker, ok := store.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}
	if checker, ok := reads.(interface{ Ping(context.Context) error }); ok {
		s.rpcHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/create-payment-intent", s.handleCreateIntent)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/api/supply", s.handleSupply)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/api/admin/reconciliation", s.admin.Middleware(http.HandlerFunc(s.handleReconciliation)))
	mux.Handle("/metrics", metrics.handler())

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type createIntentRequest struct {
	Quantity      int64  `json:"quantity"`
	WalletAddress string `json:"walletAddress"`
}

type apiEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.metrics.incIntent("invalid")
		writeJSON(w, http.StatusBadRequest, apiEnvelope{Success: false, Error: "invalid json payload"})
		return
	}

	result, err := s.payments.CreateIntent(r.Context(), payload.Quantity, payload.WalletAddress)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusBadRequest {
			s.metrics.incIntent("invalid")
		} else {
			s.metrics.incIntent("failed")
		}
		writeJSON(w, status, apiEnvelope{Success: false, Error: err.Error()})
		return
	}

	s.metrics.incIntent("created")
	writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: result})
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
	TxHash   string `json:"txHash,omitempty"`
}

// handleWebhook takes the raw request body, never a decoded form: the
// signature covers the exact bytes the provider sent. A failed mint after a
// successful payment answers 500 so the provider redelivers, and the ledger
// claim turns every redelivery into a duplicate no-op instead of a second
// mint.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	outcome, err := s.payments.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch faults.KindOf(err) {
		case faults.KindSignature:
			s.metrics.incWebhook("rejected")
			http.Error(w, "webhook signature verification failed", http.StatusBadRequest)
		case faults.KindValidation:
			s.metrics.incWebhook("invalid")
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			status := outcome.Status
			if status == "" {
				status = "failed"
			}
			s.metrics.incWebhook(status)
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		}
		s.metrics.setReconciliationDepth(s.recon.Depth())
		return
	}

	s.metrics.incWebhook(outcome.Status)
	s.metrics.setReconciliationDepth(s.recon.Depth())
	writeJSON(w, http.StatusOK, webhookResponse{Received: true, Status: outcome.Status, TxHash: outcome.TxHash})
}

type supplyResponse struct {
	PriceWei    string `json:"priceWei"`
	TotalSupply int64  `json:"totalSupply"`
	MaxSupply   int64  `json:"maxSupply"`
	Remaining   int64  `json:"remaining"`
	SoldOut     bool   `json:"soldOut"`
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeouts.RPC)
	defer cancel()

	price, err := s.reads.Price(ctx)
	if err == nil {
		var total, max *big.Int
		total, err = s.reads.TotalSupply(ctx)
		if err == nil {
			max, err = s.reads.MaxSupply(ctx)
		}
		if err == nil {
			s.metrics.incSupplyRead("ok")
			writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: supplyResponse{
				PriceWei:    price.String(),
				TotalSupply: total.Int64(),
				MaxSupply:   max.Int64(),
				Remaining:   max.Int64() - total.Int64(),
				SoldOut:     total.Cmp(max) >= 0,
			}})
			return
		}
	}

	s.metrics.incSupplyRead("failed")
	log.Error().Err(err).Msg("supply read failed")
	writeJSON(w, http.StatusBadGateway, apiEnvelope{Success: false, Error: "contract read failed"})
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	failures, err := s.store.Failures(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiEnvelope{Success: false, Error: "ledger read failed"})
		return
	}

	resp := struct {
		Count    int            `json:"count"`
		Failures []ledger.Entry `json:"failures"`
	}{Count: len(failures), Failures: failures}
	writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: resp})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.Connected = true
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	} else {
		rpcInfo.Connected = true
	}

	ledgerInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.dbHealthFn != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.dbHealthFn(dbCtx); err != nil {
			ledgerInfo.Connected = false
			ledgerInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	depth := s.recon.Depth()
	s.metrics.setReconciliationDepth(depth)

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status              string      `json:"status"`
		RPC                 interface{} `json:"rpc"`
		Ledger              interface{} `json:"ledger"`
		ReconciliationDepth int         `json:"reconciliation_depth"`
	}{
		Status:              status,
		RPC:                 rpcInfo,
		Ledger:              ledgerInfo,
		ReconciliationDepth: depth,
	}

	code := http.StatusOK
	if !overallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// statusForError maps fault kinds to HTTP codes. Anything the caller can
// fix is a 400; upstream trouble is a 502 so load balancers see it as
// transient.
func statusForError(err error) int {
	switch faults.KindOf(err) {
	case faults.KindValidation:
		return http.StatusBadRequest
	case faults.KindSignature:
		return http.StatusBadRequest
	case faults.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Debug().Err(err).Msg("response write failed")
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
