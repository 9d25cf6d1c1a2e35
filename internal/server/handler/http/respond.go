package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorBody{Detail: detail})
}

// writeError maps service errors to status codes and messages. Unknown
// errors are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeDetail(w, http.StatusUnprocessableEntity, ve.Message)
	case errors.Is(err, service.ErrEmailTaken):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUnknownUser):
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, service.ErrTaskNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Access denied")
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is true.
func decode(r *http.Request, v any, optional bool) error {
	if optional && r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
