package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/response"
	"github.com/diagnosis/bistro-api/internal/platform/payment"
	"github.com/diagnosis/bistro-api/internal/utils"
	"github.com/diagnosis/bistro-api/pkg/logger"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "Invalid JSON format"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		response.BadRequest(w, msg)
		return false
	}
	return true
}

type validator interface{ Validate() error }

func decodeValid(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

// idParam returns the {id} path parameter, writing 400 when it is not a valid id.
func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidID(id) {
		response.BadRequest(w, fmt.Sprintf("malformed id %q", id))
		return "", false
	}
	return id, true
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, payment.ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	default:
		logger.ErrorContext(r.Context(), op+" failed", "error", err)
		response.InternalError(w, "Internal server error")
	}
}
