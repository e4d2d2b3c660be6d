// Package api exposes the engine over HTTP. Reads are open; every call that
// acts on behalf of an address must carry that address's EIP-191 signature of
// the method, path and exact request body. Committed events stream over
// /ws/events.
package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/observability"
	"github.com/getantonio/tokenhub/internal/units"
)

// Server routes HTTP requests to an Engine.
type Server struct {
	eng     *engine.Engine
	log     logrus.FieldLogger
	metrics *observability.Metrics
	hub     *Hub
	hubCfg  HubConfig
	verify  bool
	replay  *replayGuard
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSignatureCheck turns intent signature verification on or off. It is on
// by default.
func WithSignatureCheck(on bool) Option {
	return func(s *Server) { s.verify = on }
}

// WithHubConfig tunes the websocket hub.
func WithHubConfig(cfg HubConfig) Option {
	return func(s *Server) { s.hubCfg = cfg }
}

// New creates a server and subscribes its event hub to eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		eng:    eng,
		log:    logrus.StandardLogger(),
		hubCfg: DefaultHubConfig(),
		verify: true,
		replay: newReplayGuard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.hubCfg, s.log, s.metrics)
	eng.Subscribe(s.hub)
	return s
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.Handle("GET /ws/events", s.hub)

	mux.HandleFunc("POST /v1/issuances", s.handleCreate)
	mux.HandleFunc("GET /v1/issuances", s.handleList)
	mux.HandleFunc("GET /v1/issuances/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/issuances/{id}/balances/{holder}", s.handleBalance)
	mux.HandleFunc("GET /v1/issuances/{id}/presale", s.handlePresale)
	mux.HandleFunc("GET /v1/issuances/{id}/vesting/{beneficiary}", s.handleVesting)

	mux.HandleFunc("POST /v1/issuances/{id}/mint", s.intent(s.mint))
	mux.HandleFunc("POST /v1/issuances/{id}/transfer", s.intent(s.transfer))
	mux.HandleFunc("POST /v1/issuances/{id}/burn", s.intent(s.burn))
	mux.HandleFunc("POST /v1/issuances/{id}/presale/contribute", s.intent(s.contribute))
	mux.HandleFunc("POST /v1/issuances/{id}/presale/whitelist", s.intent(s.whitelist))
	mux.HandleFunc("POST /v1/issuances/{id}/presale/close", s.handleClose)
	mux.HandleFunc("POST /v1/issuances/{id}/presale/finalize", s.handleFinalize)
	mux.HandleFunc("POST /v1/issuances/{id}/claims/tokens", s.intent(s.claimTokens))
	mux.HandleFunc("POST /v1/issuances/{id}/claims/refund", s.intent(s.claimRefund))
	mux.HandleFunc("POST /v1/issuances/{id}/claims/vested", s.intent(s.claimVested))
	mux.HandleFunc("POST /v1/issuances/{id}/claims/proceeds", s.intent(s.claimProceeds))
	mux.HandleFunc("POST /v1/issuances/{id}/vesting/revoke", s.intent(s.revoke))
	mux.HandleFunc("POST /v1/issuances/{id}/liquidity/withdraw", s.intent(s.withdraw))

	return s.logRequests(mux)
}

// ---------------------------------------------------------------------------
// reads
// ---------------------------------------------------------------------------

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.eng.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.eng.Now()
	out := make([]IssuanceView, 0, len(list))
	for _, in := range list {
		out = append(out, NewIssuanceView(in, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	in, err := s.eng.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewIssuanceView(in, s.eng.Now()))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	holder, err := pathAddress(r, "holder")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.eng.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"holder":  holder.Hex(),
		"balance": units.FormatUnits(in.Ledger.BalanceOf(holder), in.Issuance.Decimals),
	})
}

func (s *Server) handlePresale(w http.ResponseWriter, r *http.Request) {
	in, err := s.eng.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := NewIssuanceView(in, s.eng.Now())
	if v.Presale == nil {
		s.writeError(w, r, issuance.ErrNoPresale)
		return
	}
	writeJSON(w, http.StatusOK, v.Presale)
}

func (s *Server) handleVesting(w http.ResponseWriter, r *http.Request) {
	b, err := pathAddress(r, "beneficiary")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.eng.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sched, ok := in.Vesting[b]
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", issuance.ErrNoVesting, b.Hex()))
		return
	}
	writeJSON(w, http.StatusOK, NewVestingView(sched, in.Issuance.Decimals, s.eng.Now()))
}

// ---------------------------------------------------------------------------
// permissionless transitions
// ---------------------------------------------------------------------------

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	st, err := s.eng.ClosePresale(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(st)})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	out, err := s.eng.FinalizePresale(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := s.eng.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewOutcomeView(out, in.Issuance.Decimals))
}

// ---------------------------------------------------------------------------
// signed intents
// ---------------------------------------------------------------------------

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateBody
	if err := s.readSigned(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := body.CreateRequest()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.eng.CreateIssuance(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// intentOp runs one signed operation. dec is the token's decimals.
type intentOp func(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error)

func (s *Server) intent(op intentOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var it Intent
		if err := s.readSigned(w, r, &it); err != nil {
			s.writeError(w, r, err)
			return
		}
		id := pathID(r)
		in, err := s.eng.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out, err := op(r.Context(), id, in.Issuance.Decimals, it)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) mint(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	to, amt, err := it.target(dec)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Mint(ctx, id, it.Caller, to, amt); err != nil {
		return nil, err
	}
	return amountView(amt, dec), nil
}

func (s *Server) transfer(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	to, amt, err := it.target(dec)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Transfer(ctx, id, it.Caller, to, amt); err != nil {
		return nil, err
	}
	return amountView(amt, dec), nil
}

func (s *Server) burn(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	amt, err := parseAmount("amount", it.Amount, dec)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Burn(ctx, id, it.Caller, amt); err != nil {
		return nil, err
	}
	return amountView(amt, dec), nil
}

func (s *Server) contribute(ctx context.Context, id issuance.ID, _ uint8, it Intent) (any, error) {
	amt, err := parseAmount("amount", it.Amount, NativeDecimals)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Contribute(ctx, id, it.Caller, amt); err != nil {
		return nil, err
	}
	st, err := s.eng.PresaleState(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"amount": units.FormatUnits(amt, NativeDecimals),
		"state":  string(st),
	}, nil
}

func (s *Server) whitelist(ctx context.Context, id issuance.ID, _ uint8, it Intent) (any, error) {
	if len(it.Add) == 0 && len(it.Remove) == 0 {
		return nil, badRequest("add or remove is required")
	}
	if len(it.Add) > 0 {
		if err := s.eng.AddToWhitelist(ctx, id, it.Caller, it.Add); err != nil {
			return nil, err
		}
	}
	if len(it.Remove) > 0 {
		if err := s.eng.RemoveFromWhitelist(ctx, id, it.Caller, it.Remove); err != nil {
			return nil, err
		}
	}
	return map[string]int{"added": len(it.Add), "removed": len(it.Remove)}, nil
}

func (s *Server) claimTokens(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	return claimed(s.eng.ClaimTokens(ctx, id, it.Caller))(dec)
}

func (s *Server) claimVested(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	return claimed(s.eng.ClaimVested(ctx, id, it.Caller))(dec)
}

func (s *Server) claimRefund(ctx context.Context, id issuance.ID, _ uint8, it Intent) (any, error) {
	return claimed(s.eng.ClaimRefund(ctx, id, it.Caller))(NativeDecimals)
}

func (s *Server) claimProceeds(ctx context.Context, id issuance.ID, _ uint8, it Intent) (any, error) {
	return claimed(s.eng.ClaimProceeds(ctx, id, it.Caller))(NativeDecimals)
}

func (s *Server) revoke(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	if it.Beneficiary == nil {
		return nil, badRequest("beneficiary is required")
	}
	return claimed(s.eng.RevokeVesting(ctx, id, it.Caller, *it.Beneficiary))(dec)
}

func (s *Server) withdraw(ctx context.Context, id issuance.ID, dec uint8, it Intent) (any, error) {
	lock, err := s.eng.WithdrawLiquidity(ctx, id, it.Caller)
	if err != nil {
		return nil, err
	}
	return LockView{
		TokenAmount:  units.FormatUnits(lock.TokenAmount, dec),
		NativeAmount: units.FormatUnits(lock.NativeAmount, NativeDecimals),
		UnlockTime:   lock.UnlockTime,
		Locked:       lock.Locked,
		Owner:        lock.Owner,
	}, nil
}

// claimed adapts an (amount, error) pair to an intentOp result.
func claimed(amt *big.Int, err error) func(dec uint8) (any, error) {
	return func(dec uint8) (any, error) {
		if err != nil {
			return nil, err
		}
		return amountView(amt, dec), nil
	}
}

func (it Intent) target(dec uint8) (common.Address, *big.Int, error) {
	if it.To == nil {
		return common.Address{}, nil, badRequest("to is required")
	}
	amt, err := parseAmount("amount", it.Amount, dec)
	if err != nil {
		return common.Address{}, nil, err
	}
	return *it.To, amt, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func pathID(r *http.Request) issuance.ID { return issuance.ID(r.PathValue("id")) }

func pathAddress(r *http.Request, name string) (common.Address, error) {
	v := r.PathValue(name)
	if !common.IsHexAddress(v) {
		return common.Address{}, badRequest("%s: %q is not an address", name, v)
	}
	return common.HexToAddress(v), nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/events" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}
