// Package clearing provides the HTTP handlers and orchestration for the
// covered-call settlement engine: mint, transfer, exercise, claim, and
// position/journal queries.
//
// All monetary values use shopspring/decimal — never float64 for money.
package clearing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/optclear/clearing-engine/internal/engine"
	"github.com/optclear/clearing-engine/internal/metrics"
	"github.com/optclear/clearing-engine/internal/model"
	"github.com/optclear/clearing-engine/internal/risk"
	"github.com/optclear/clearing-engine/internal/store"
)

// Service orchestrates the settlement engine behind the HTTP surface.
// A mutex serializes every state-mutating operation: the engine requires
// one operation to complete before the next begins (single-instance).
// For horizontal scaling, replace with distributed locking.
type Service struct {
	engine  *engine.Engine
	store   store.Store
	limiter *risk.ExposureLimiter
	mu      sync.Mutex
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new clearing service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(eng *engine.Engine, st store.Store, limiter *risk.ExposureLimiter, hub *WSHub) *Service {
	return &Service{
		engine:  eng,
		store:   st,
		limiter: limiter,
		wsHub:   hub,
	}
}

// --- Request/Response types ---

// MintRequest is the JSON body for POST /mint. Caller must be the
// authorized originator.
type MintRequest struct {
	Caller string `json:"caller"`
	Long   string `json:"long"`
	Short  string `json:"short"`
	Size   int64  `json:"size"`
}

// MintResponse is returned from POST /mint.
type MintResponse struct {
	EventID      string         `json:"event_id"`
	OpenInterest int64          `json:"open_interest"`
	Long         model.Position `json:"long"`
	Short        model.Position `json:"short"`
}

// TransferRequest is the JSON body for POST /transfer.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// TransferResponse is returned from POST /transfer.
type TransferResponse struct {
	EventID string         `json:"event_id"`
	From    model.Position `json:"from"`
	To      model.Position `json:"to"`
}

// ExerciseRequest is the JSON body for POST /exercise. Payment is the
// attached strike-currency amount and must cover strike × quantity.
type ExerciseRequest struct {
	Caller   string          `json:"caller"`
	Quantity int64           `json:"quantity"`
	Payment  decimal.Decimal `json:"payment"`
}

// FillView is one assignment in an exercise response.
type FillView struct {
	Short      string          `json:"short"`
	Quantity   int64           `json:"quantity"`
	Premium    decimal.Decimal `json:"premium"`
	Underlying decimal.Decimal `json:"underlying"`
	FullUnwind bool            `json:"full_unwind"`
}

// ExerciseResponse is returned from POST /exercise.
type ExerciseResponse struct {
	Fills          []FillView      `json:"fills"`
	UnderlyingPaid decimal.Decimal `json:"underlying_paid"`
	PremiumPaid    decimal.Decimal `json:"premium_paid"`
	OpenInterest   int64           `json:"open_interest"`
	Position       model.Position  `json:"position"`
}

// ClaimRequest is the JSON body for POST /claim.
type ClaimRequest struct {
	Caller string `json:"caller"`
}

// ClaimResponse is returned from POST /claim.
type ClaimResponse struct {
	ReleasedUnits int64           `json:"released_units"`
	Underlying    decimal.Decimal `json:"underlying"`
	Position      model.Position  `json:"position"`
}

// --- HTTP Handlers ---

// Mint handles POST /api/v1/mint.
// Opens matched long/short exposure on behalf of the originator.
func (s *Service) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Long == "" || req.Short == "" {
		writeError(w, "long and short are required", http.StatusBadRequest)
		return
	}
	if req.Size <= 0 {
		writeError(w, "size must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Prospective short exposure and open interest for the limit check.
	shortExposure := req.Size - s.engine.Balance(req.Short)
	if shortExposure < 0 {
		shortExposure = 0
	}
	if err := s.limiter.CheckMint(shortExposure, s.engine.OpenInterest()+req.Size); err != nil {
		metrics.OperationRejections.WithLabelValues("mint").Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	if err := s.engine.Mint(ctx, req.Caller, req.Long, req.Short, req.Size); err != nil {
		metrics.OperationRejections.WithLabelValues("mint").Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	event := s.record(ctx, &model.JournalEvent{
		Type:         model.EventMint,
		Account:      req.Long,
		Counterparty: req.Short,
		Quantity:     req.Size,
	}, req.Long, req.Short)

	metrics.OperationsTotal.WithLabelValues("mint").Inc()
	s.updateGauges()

	slog.Info("position minted",
		"event_id", event.ID,
		"long", req.Long,
		"short", req.Short,
		"size", req.Size,
		"open_interest", s.engine.OpenInterest(),
	)

	writeJSON(w, http.StatusCreated, MintResponse{
		EventID:      event.ID,
		OpenInterest: s.engine.OpenInterest(),
		Long:         s.position(req.Long),
		Short:        s.position(req.Short),
	})
}

// Transfer handles POST /api/v1/transfer.
// Moves long exposure between addresses; ledger only.
func (s *Service) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, "from and to are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Transfer(req.From, req.To, req.Amount); err != nil {
		metrics.OperationRejections.WithLabelValues("transfer").Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	event := s.record(ctx, &model.JournalEvent{
		Type:         model.EventTransfer,
		Account:      req.From,
		Counterparty: req.To,
		Quantity:     req.Amount,
	}, req.From, req.To)

	metrics.OperationsTotal.WithLabelValues("transfer").Inc()
	s.updateGauges()

	slog.Info("exposure transferred",
		"event_id", event.ID,
		"from", req.From,
		"to", req.To,
		"amount", req.Amount,
	)

	writeJSON(w, http.StatusOK, TransferResponse{
		EventID: event.ID,
		From:    s.position(req.From),
		To:      s.position(req.To),
	})
}

// Exercise handles POST /api/v1/exercise.
// Assigns the caller's long exposure against registered shorts, most
// recently registered first.
func (s *Service) Exercise(w http.ResponseWriter, r *http.Request) {
	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, "quantity must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	fills, err := s.engine.Exercise(ctx, req.Caller, req.Quantity, req.Payment)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("exercise").Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	views := make([]FillView, 0, len(fills))
	underlyingPaid := decimal.Zero
	premiumPaid := decimal.Zero
	touched := []string{req.Caller}

	for _, f := range fills {
		unwind := "partial"
		if f.FullUnwind {
			unwind = "full"
		}
		metrics.AssignmentsTotal.WithLabelValues(unwind).Inc()

		s.record(ctx, &model.JournalEvent{
			Type:         model.EventAssignment,
			Account:      req.Caller,
			Counterparty: f.Short,
			Quantity:     f.Quantity,
			Premium:      f.Premium,
			Underlying:   f.Underlying,
			FullUnwind:   f.FullUnwind,
		}, f.Short)

		underlyingPaid = underlyingPaid.Add(f.Underlying)
		premiumPaid = premiumPaid.Add(f.Premium)
		touched = append(touched, f.Short)

		views = append(views, FillView{
			Short:      f.Short,
			Quantity:   f.Quantity,
			Premium:    f.Premium,
			Underlying: f.Underlying,
			FullUnwind: f.FullUnwind,
		})
	}
	s.snapshot(ctx, req.Caller)

	metrics.OperationsTotal.WithLabelValues("exercise").Inc()
	s.updateGauges()

	slog.Info("position exercised",
		"caller", req.Caller,
		"quantity", req.Quantity,
		"fills", len(fills),
		"premium_paid", premiumPaid.String(),
		"underlying_paid", underlyingPaid.String(),
		"open_interest", s.engine.OpenInterest(),
	)

	writeJSON(w, http.StatusOK, ExerciseResponse{
		Fills:          views,
		UnderlyingPaid: underlyingPaid,
		PremiumPaid:    premiumPaid,
		OpenInterest:   s.engine.OpenInterest(),
		Position:       s.position(req.Caller),
	})
}

// Claim handles POST /api/v1/claim.
// Releases unused (or, post-expiry, all remaining) collateral.
func (s *Service) Claim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	units, err := s.engine.Claim(ctx, req.Caller)
	if err != nil {
		metrics.OperationRejections.WithLabelValues("claim").Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	underlying := s.engine.Terms().ScaleUnits(units)
	if units > 0 {
		s.record(ctx, &model.JournalEvent{
			Type:       model.EventClaim,
			Account:    req.Caller,
			Quantity:   units,
			Underlying: underlying,
		}, req.Caller)
	}

	metrics.OperationsTotal.WithLabelValues("claim").Inc()
	s.updateGauges()

	slog.Info("collateral claimed",
		"caller", req.Caller,
		"units", units,
		"underlying", underlying.String(),
	)

	writeJSON(w, http.StatusOK, ClaimResponse{
		ReleasedUnits: units,
		Underlying:    underlying,
		Position:      s.position(req.Caller),
	})
}

// GetSeries handles GET /api/v1/series.
func (s *Service) GetSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Terms())
}

// GetPosition handles GET /api/v1/positions/{address}.
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, s.position(addr))
}

// ListPositions handles GET /api/v1/positions.
// Returns every holder with non-zero exposure or posted coverage.
func (s *Service) ListPositions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	positions := []model.Position{}
	for _, addr := range s.engine.Holders() {
		seen[addr] = true
		positions = append(positions, s.position(addr))
	}
	// Flat addresses can still hold claimable coverage.
	for _, addr := range s.engine.Shorts() {
		if !seen[addr] {
			positions = append(positions, s.position(addr))
		}
	}

	writeJSON(w, http.StatusOK, positions)
}

// GetJournal handles GET /api/v1/journal, optionally filtered by
// ?account=<address>.
func (s *Service) GetJournal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		events []model.JournalEvent
		err    error
	)
	if addr := r.URL.Query().Get("account"); addr != "" {
		events, err = s.store.EventsByAccount(ctx, addr)
	} else {
		events, err = s.store.Events(ctx)
	}
	if err != nil {
		writeError(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.JournalEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

// --- Internals ---

// position builds the live view of one holder from engine state.
func (s *Service) position(addr string) model.Position {
	balance := s.engine.Balance(addr)
	coverage := s.engine.Coverage(addr)

	var required int64
	if balance < 0 {
		required = -balance
	}
	reclaimable := coverage - required
	if reclaimable < 0 {
		reclaimable = 0
	}

	return model.Position{
		Address:          addr,
		Balance:          balance,
		Coverage:         coverage,
		RequiredCoverage: required,
		ReclaimableUnits: reclaimable,
		Registered:       s.engine.IsRegistered(addr),
	}
}

// record journals one settlement event and refreshes the snapshots of the
// touched holders. The engine state is authoritative; a journal write
// failure is logged, not surfaced, so settled state is never reported as
// failed.
func (s *Service) record(ctx context.Context, event *model.JournalEvent, holders ...string) *model.JournalEvent {
	event.ID = uuid.New().String()
	event.Series = s.engine.Terms().Symbol
	event.Timestamp = time.Now().UTC()

	if err := s.store.AppendEvent(ctx, event); err != nil {
		slog.Error("journal append failed", "event_id", event.ID, "type", event.Type, "err", err)
	}
	for _, addr := range holders {
		s.snapshot(ctx, addr)
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:         event.Type,
			Series:       event.Series,
			Account:      event.Account,
			Counterparty: event.Counterparty,
			Quantity:     event.Quantity,
			Premium:      event.Premium.String(),
			Underlying:   event.Underlying.String(),
		})
	}
	return event
}

// snapshot upserts the durable position record of one holder.
func (s *Service) snapshot(ctx context.Context, addr string) {
	rec := &model.PositionRecord{
		Address:   addr,
		Balance:   s.engine.Balance(addr),
		Coverage:  s.engine.Coverage(addr),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertPosition(ctx, rec); err != nil {
		slog.Error("position snapshot failed", "address", addr, "err", err)
	}
}

// updateGauges refreshes the open-interest and registry-size gauges.
func (s *Service) updateGauges() {
	metrics.OpenInterest.Set(float64(s.engine.OpenInterest()))
	metrics.RegisteredShorts.Set(float64(len(s.engine.Shorts())))
}

// statusForError maps engine and risk errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrSelfTrade):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientSolvency),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrExpired),
		errors.Is(err, engine.ErrInsufficientPosition),
		errors.Is(err, engine.ErrInsufficientPayment),
		errors.Is(err, engine.ErrInsufficientCoverage),
		errors.Is(err, risk.ErrShortLimitExceeded),
		errors.Is(err, risk.ErrInterestLimitExceeded):
		return http.StatusConflict
	default:
		// ErrRegistryExhausted signals an accounting defect, not a
		// caller mistake.
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
