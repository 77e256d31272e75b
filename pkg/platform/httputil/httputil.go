package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "folio/pkg/domain-errors"
)

// ErrorResponse is the only error body the API emits. Error is always a short
// human-readable sentence; Code is the stable machine-readable category.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into its HTTP status and JSON body.
// Anything that is not a domain error becomes a generic 500 so internals
// never leak to the client.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: defaultMessage(dErrors.CodeInternal),
			Code:  string(dErrors.CodeInternal),
		})
		return
	}

	msg := domainErr.Message
	if msg == "" || domainErr.Code == dErrors.CodeInternal {
		msg = defaultMessage(domainErr.Code)
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
		Error: msg,
		Code:  string(domainErr.Code),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeVerificationFailed:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return "Invalid request"
	case dErrors.CodeVerificationFailed:
		return "Verification failed"
	case dErrors.CodeUnauthorized:
		return "Unauthorized"
	case dErrors.CodeNotFound:
		return "Not found"
	case dErrors.CodeRateLimited:
		return "Too many requests"
	case dErrors.CodeUnavailable:
		return "Service unavailable"
	case dErrors.CodeTimeout:
		return "Request timed out"
	default:
		return "Internal server error"
	}
}
