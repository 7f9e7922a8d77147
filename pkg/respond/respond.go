package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"coursehub/pkg/apperr"
	"coursehub/pkg/logging"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// Error writes err as a JSON error envelope. Internal errors are logged and
// their details are not sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		msg = apperr.ErrInternal.Message
	}
	JSON(w, kind.HTTPStatus(), errorBody{Error: msg, Code: kind.String()})
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, err, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return apperr.Wrap(apperr.KindBadRequest, err, "validation failed")
	}
	return nil
}

// Validate checks v against its validate tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, err, "validation failed")
	}
	return nil
}

// UintVar parses the named mux route variable as an id.
func UintVar(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
