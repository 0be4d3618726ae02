package handlers

import (
	"net/http"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// WindowResolver resolves lookback text into a window
type WindowResolver interface {
	ResolveString(s string) (contracts.Window, error)
}

// LookbackHandler handles lookback resolution
type LookbackHandler struct {
	resolver WindowResolver
}

// NewLookbackHandler creates a new lookback handler
func NewLookbackHandler(resolver WindowResolver) *LookbackHandler {
	return &LookbackHandler{resolver: resolver}
}

// Resolve returns the window for a spec
// GET /api/lookback/resolve?spec=60|2020-01-01
func (h *LookbackHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	spec := r.URL.Query().Get("spec")
	if spec == "" {
		respondError(w, http.StatusBadRequest, "spec query parameter is required")
		return
	}

	window, err := h.resolver.ResolveString(spec)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, window)
}
