package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"error_kind,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// newValidator returns a validator that reports JSON field names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}

	if err := v.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

func respondValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "validation failed",
		Details: details,
	})
}

// respondEngineError maps an engine error kind onto an HTTP status
func respondEngineError(w http.ResponseWriter, err error) {
	kind := contracts.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case contracts.KindInvalidSpec:
		status = http.StatusBadRequest
	case contracts.KindNoData, contracts.KindNoScores:
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
