package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"classbook/internal/adapters/storage"
	"classbook/internal/application/orchestrators"
	"classbook/internal/domain/account"
	"classbook/internal/domain/session"
)

// maxJSONBody caps request bodies decoded as JSON.
const maxJSONBody = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"` // field -> failed rule
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("decode request body: trailing data")
	}
	return nil
}

// decodeAndValidate decodes and validates a request DTO, writing a 400 on failure.
// POST: Returns false when a response has already been written
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return validateRequest(w, dst)
}

// validateRequest runs struct validation, reporting failed rules per field.
func validateRequest(w http.ResponseWriter, dst any) bool {
	err := validate.Struct(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	writeError(w, http.StatusBadRequest, err.Error())
	return false
}

// statusFor maps domain and storage errors to HTTP status codes.
func statusFor(err error) int {
	var importErr *orchestrators.ImportValidationError
	switch {
	case errors.As(err, &importErr):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, session.ErrRecordNotFound),
		errors.Is(err, session.ErrUnknownMember),
		errors.Is(err, ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrSubmitted),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrUnsavedChanges),
		errors.Is(err, orchestrators.ErrEmailAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyTitle),
		errors.Is(err, session.ErrTitleTooLong),
		errors.Is(err, session.ErrInvalidMaxScore),
		errors.Is(err, session.ErrInvalidKind),
		errors.Is(err, session.ErrInvalidValue),
		errors.Is(err, session.ErrKindMismatch),
		errors.Is(err, session.ErrFeedbackUnsupported),
		errors.Is(err, session.ErrEmptyRoster),
		errors.Is(err, account.ErrInvalidEmail),
		errors.Is(err, account.ErrEmptyEmail),
		errors.Is(err, account.ErrEmailTooLong),
		errors.Is(err, account.ErrEmptyPassword),
		errors.Is(err, account.ErrPasswordTooShort),
		errors.Is(err, account.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, orchestrators.ErrAccountLocked):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// writeDomainError writes err with its mapped status. Server errors are
// logged and their detail withheld from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "op", op, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
