package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/matapang/platform/libs/shared/errs"
)

// JSON writes the provided payload as JSON with the supplied status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes an error response with a standard envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"error": message})
}

// Fail maps err onto a status code and writes the error envelope.
// Validation errors also carry their code so clients can focus the offending input.
func Fail(w http.ResponseWriter, err error) {
	if ve, ok := errs.AsValidation(err); ok {
		JSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ve.Message, "code": ve.Code})
		return
	}
	Error(w, StatusFor(err), err.Error())
}

// StatusFor returns the HTTP status code for an error.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
