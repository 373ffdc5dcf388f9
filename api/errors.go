package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/repository"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

type errorBody struct {
	Error    string             `json:"error"`
	Reason   string             `json:"reason,omitempty"`
	Problems []validate.Problem `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.String("error", err.Error()))
	}
}

func writeUnauthorized(w http.ResponseWriter, msg, reason string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg, Reason: reason})
}

// writeError maps a domain error onto a status and a client-safe body. CRM
// response bodies and internal messages are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *portal.ValidationError
		serr   *validate.Error
		cerr   *portal.CapacityError
		crmErr *crm.Error
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	case errors.As(err, &serr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Problems: serr.Problems})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: cerr.Message})
	case errors.Is(err, portal.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, portal.ErrNoCRMIdentity):
		writeUnauthorized(w, "no company is associated with this account", reasonInvalid)
	case errors.Is(err, repository.ErrReadOnly):
		writeJSON(w, http.StatusConflict, errorBody{Error: "the authorized user list is read-only"})
	case errors.As(err, &crmErr):
		status := http.StatusInternalServerError
		if crmErr.Retryable() {
			status = http.StatusBadGateway
		}
		logger.Error("crm request failed",
			slog.String("path", r.URL.Path),
			slog.Int("crm_status", crmErr.Status),
			slog.String("error", err.Error()),
			slog.String("request_id", RequestID(r.Context())))
		writeJSON(w, status, errorBody{Error: "upstream CRM request failed"})
	default:
		logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("request_id", RequestID(r.Context())))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON reads a bounded JSON body, checks it against schema when a
// validator is configured and decodes it into v.
func decodeJSON(r *http.Request, v *validate.Validator, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return &portal.ValidationError{Message: "could not read request body"}
	}
	if len(body) > maxJSONBody {
		return &portal.ValidationError{Message: "request body too large"}
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if v != nil {
		if err := v.Validate(r.Context(), schema, body); err != nil {
			var serr *validate.Error
			if errors.As(err, &serr) {
				return err
			}
			return &portal.ValidationError{Message: "invalid JSON body"}
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &portal.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}
