package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "folio/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type validatingRequest struct {
	Name string `json:"name"`
}

func (r *validatingRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type normalizingRequest struct {
	Name      string `json:"name"`
	validated bool
}

func (r *normalizingRequest) Normalize() {
	r.Name = "normalized-" + r.Name
}

func (r *normalizingRequest) Validate() error {
	r.validated = true
	return nil
}

type domainErrorRequest struct {
	ID string `json:"id"`
}

func (r *domainErrorRequest) Validate() error {
	if r.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestDecodeJSON(t *testing.T) {
	logger := discardLogger()
	ctx := context.Background()

	t.Run("successful decode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"test","value":42}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[testRequest](w, req, logger, ctx, "req-1")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "test", result.Name)
		assert.Equal(t, 42, result.Value)
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid json}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[testRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Invalid request body", resp.Error)
		assert.Equal(t, "bad_request", resp.Code)
	})

	t.Run("empty body asks for a body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[testRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Request body is required", decodeError(t, w).Error)
	})

	t.Run("oversized body is reported as too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"`+strings.Repeat("x", 64)+`"}`))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 16)

		_, ok := DecodeJSON[testRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Request body too large", decodeError(t, w).Error)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := discardLogger()
	ctx := context.Background()

	t.Run("plain validation error becomes validation_failed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":""}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[validatingRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "name is required", resp.Error)
		assert.Equal(t, "validation_failed", resp.Code)
	})

	t.Run("domain error from Validate keeps its code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"id":""}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[domainErrorRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		resp := decodeError(t, w)
		assert.Equal(t, "bad_request", resp.Code)
		assert.Equal(t, "id is required", resp.Error)
	})

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"x"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[normalizingRequest](w, req, logger, ctx, "req-1")

		require.True(t, ok)
		assert.Equal(t, "normalized-x", result.Name)
		assert.True(t, result.validated)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("maps rate limited to 429", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Daily limit reached"))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "Daily limit reached", decodeError(t, w).Error)
	})

	t.Run("hides internal messages", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "pq: relation does not exist"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decodeError(t, w).Error)
	})

	t.Run("non-domain errors become generic 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Internal server error", resp.Error)
		assert.Equal(t, "internal_error", resp.Code)
	})

	t.Run("verification failure is 400", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, DomainCodeToHTTPStatus(dErrors.CodeVerificationFailed))
		assert.Equal(t, http.StatusServiceUnavailable, DomainCodeToHTTPStatus(dErrors.CodeUnavailable))
	})
}
