package turnstile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ClientSuite runs the siteverify client against a local server.
//
// Justification: the classifier spends money only after this check passes,
// so every non-success path must come back as an error.
type ClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ClientSuite) server(status int, body string, inspect func(*http.Request)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *ClientSuite) TestSuccessSendsForm() {
	srv := s.server(http.StatusOK, `{"success":true}`, func(r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		s.Require().NoError(r.ParseForm())
		s.Equal("shh", r.PostForm.Get("secret"))
		s.Equal("tok", r.PostForm.Get("response"))
		s.Equal("198.51.100.4", r.PostForm.Get("remoteip"))
	})

	c := New(Config{Secret: "shh", VerifyURL: srv.URL})
	s.NoError(c.Verify(s.ctx, "tok", "198.51.100.4"))
}

func (s *ClientSuite) TestUnknownRemoteIPOmitted() {
	srv := s.server(http.StatusOK, `{"success":true}`, func(r *http.Request) {
		s.Require().NoError(r.ParseForm())
		s.False(r.PostForm.Has("remoteip"))
	})

	c := New(Config{Secret: "shh", VerifyURL: srv.URL})
	s.NoError(c.Verify(s.ctx, "tok", "unknown"))
}

func (s *ClientSuite) TestFailuresAreErrors() {
	s.Run("rejected token", func() {
		srv := s.server(http.StatusOK, `{"success":false,"error-codes":["invalid-input-response"]}`, nil)
		err := New(Config{Secret: "shh", VerifyURL: srv.URL}).Verify(s.ctx, "tok", "")
		s.ErrorIs(err, ErrRejected)
		s.Contains(err.Error(), "invalid-input-response")
	})

	s.Run("upstream error status", func() {
		srv := s.server(http.StatusBadGateway, `{"success":true}`, nil)
		s.Error(New(Config{Secret: "shh", VerifyURL: srv.URL}).Verify(s.ctx, "tok", ""))
	})

	s.Run("malformed body", func() {
		srv := s.server(http.StatusOK, `<html>`, nil)
		s.Error(New(Config{Secret: "shh", VerifyURL: srv.URL}).Verify(s.ctx, "tok", ""))
	})

	s.Run("success must be true", func() {
		srv := s.server(http.StatusOK, `{"success":"true"}`, nil)
		s.Error(New(Config{Secret: "shh", VerifyURL: srv.URL}).Verify(s.ctx, "tok", ""))
	})

	s.Run("missing secret", func() {
		c := New(Config{})
		s.False(c.Configured())
		s.ErrorIs(c.Verify(s.ctx, "tok", ""), ErrNotConfigured)
	})
}

func (s *ClientSuite) TestTimeout() {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Secret: "shh", VerifyURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := c.Verify(s.ctx, "tok", "")
	s.Error(err)
	s.False(errors.Is(err, ErrRejected))
}
