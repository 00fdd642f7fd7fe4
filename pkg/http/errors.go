package http

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON envelope for every API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// ErrorMapping ties a sentinel error to its HTTP representation. With
// Details set, the wrapped error text is echoed back to the client.
type ErrorMapping struct {
	Target  error
	Status  int
	Code    string
	Message string
	Details bool
}

// ErrorMapper writes the first mapping whose Target matches with
// errors.Is. Order matters when sentinels wrap one another. Unmatched
// errors become a 500 with no details.
type ErrorMapper []ErrorMapping

func (m ErrorMapper) Write(w http.ResponseWriter, err error) {
	for _, mapping := range m {
		if !errors.Is(err, mapping.Target) {
			continue
		}
		var details string
		if mapping.Details {
			details = err.Error()
		}
		WriteErrorWithDetails(w, mapping.Status, mapping.Code, mapping.Message, details)
		return
	}
	WriteInternalError(w, "internal server error")
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
