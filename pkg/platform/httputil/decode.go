package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "folio/pkg/domain-errors"
)

// Messages returned for bodies that never reach validation.
const (
	msgBodyRequired = "Request body is required"
	msgBodyTooLarge = "Request body too large"
	msgBodyInvalid  = "Invalid request body"
)

// Validatable is implemented by request types that check their own fields.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that trim or default fields
// before validation.
type Normalizable interface {
	Normalize()
}

// DecodeJSON reads one JSON value from the body into T. On failure it writes a
// 400 and returns false; callers just return.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := bodyFailure(err)
		logger.WarnContext(ctx, "request body rejected",
			"reason", msg,
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return nil, false
	}
	return &req, true
}

func bodyFailure(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return msgBodyTooLarge
	case errors.Is(err, io.EOF):
		return msgBodyRequired
	default:
		return msgBodyInvalid
	}
}

// PrepareRequest runs Normalize then Validate on req when it implements them.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the body and prepares it. Validation errors that
// are not already domain errors are reported as validation_failed.
//
//	req, ok := httputil.DecodeAndPrepare[models.ChatRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}

	err := PrepareRequest(req)
	if err == nil {
		return req, true
	}
	logger.WarnContext(ctx, "request failed validation",
		"error", err,
		"request_id", requestID,
	)
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		err = dErrors.New(dErrors.CodeValidation, err.Error())
	}
	WriteError(w, err)
	return nil, false
}
