package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/logging"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error  string        `json:"error"`
	Code   string        `json:"code,omitempty"`
	Fields []fieldReason `json:"fields,omitempty"`
}

type fieldReason struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "validation_error")
}

// fail maps a service error onto a status code and payload.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *errs.ValidationError
		be  *errs.BalanceError
		log = logging.FromContext(r.Context())
	)
	switch {
	case errors.As(err, &ve):
		toJSON(w, http.StatusBadRequest, errorResponse{
			Error:  ve.Error(),
			Code:   "validation_error",
			Fields: []fieldReason{{Field: ve.Field, Reason: ve.Reason}},
		})
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusBadRequest, err.Error(), "validation_error")
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "not_found")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.As(err, &be):
		writeErr(w, http.StatusUnprocessableEntity, be.Error(), "unbalanced_transaction")
	case errors.Is(err, errs.ErrConfiguration):
		log.Error("configuration error", "err", err)
		writeErr(w, http.StatusInternalServerError, err.Error(), "configuration_error")
	default:
		log.Error("request failed", "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}
