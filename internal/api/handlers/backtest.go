package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/wonny/aegis-momentum/internal/backtest"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/store"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// TaskRunner runs one task
type TaskRunner interface {
	Run(ctx context.Context, task contracts.BacktestTask) contracts.BacktestOutcome
}

// BatchRunner runs a batch, reporting each outcome to fn as it completes
type BatchRunner interface {
	RunBatchObserved(ctx context.Context, tasks []contracts.BacktestTask, fn backtest.Observer) ([]contracts.BacktestOutcome, contracts.BatchSummary)
}

// BatchStore reads and writes persisted batches
type BatchStore interface {
	SaveBatch(ctx context.Context, summary contracts.BatchSummary, outcomes []contracts.BacktestOutcome, configHash string) error
	ListBatches(ctx context.Context, limit int) ([]store.BatchRecord, error)
	GetSummary(ctx context.Context, batchID string) (*contracts.BatchSummary, error)
}

// BatchResponse is the body returned for a finished batch
type BatchResponse struct {
	Outcomes []contracts.BacktestOutcome `json:"outcomes"`
	Summary  contracts.BatchSummary      `json:"summary"`
}

// BacktestHandler handles task and batch endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	runner   TaskRunner
	batches  BatchRunner
	store    BatchStore
	validate *validator.Validate
	logger   *logger.Logger
}

// NewBacktestHandler creates a new backtest handler. store may be nil.
func NewBacktestHandler(runner TaskRunner, batches BatchRunner, st BatchStore, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		runner:   runner,
		batches:  batches,
		store:    st,
		validate: newValidator(),
		logger:   log.WithModule("api_backtest"),
	}
}

// RunTask runs a single task. A failed task is still a 200 with success=false.
// POST /api/backtest/task
func (h *BacktestHandler) RunTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	outcome := h.runner.Run(r.Context(), req.Task())
	respondJSON(w, http.StatusOK, outcome)
}

// RunBatch runs a batch and persists it when a store is configured
// POST /api/backtest/batch
func (h *BacktestHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	outcomes, summary := h.batches.RunBatchObserved(r.Context(), req.Tasks(), nil)
	h.persist(r.Context(), summary, outcomes)

	respondJSON(w, http.StatusOK, BatchResponse{Outcomes: outcomes, Summary: summary})
}

// ListBatches returns recently stored batches
// GET /api/backtest/batches?limit=20
func (h *BacktestHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "batch store is not configured")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return
		}
		limit = n
	}

	batches, err := h.store.ListBatches(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batches")
		respondError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

// GetBatch returns one stored batch summary
// GET /api/backtest/batches/{id}
func (h *BacktestHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "batch store is not configured")
		return
	}

	summary, err := h.store.GetSummary(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrBatchNotFound) {
		respondError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get batch")
		respondError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// persist saves a batch; failures are logged and never affect the response
func (h *BacktestHandler) persist(ctx context.Context, summary contracts.BatchSummary, outcomes []contracts.BacktestOutcome) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveBatch(ctx, summary, outcomes, ""); err != nil {
		h.logger.WithField("batch_id", summary.BatchID).WithError(err).Warn("Failed to persist batch")
	}
}
