package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/pkg/requestcontext"
)

func TestResolverClientIP(t *testing.T) {
	tests := []struct {
		name           string
		headers        map[string]string
		remoteAddr     string
		trustedProxies []string
		expectedIP     string
	}{
		{
			name:       "ignores XFF from untrusted peer",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "192.168.1.1",
		},
		{
			name:           "skips trusted hops from the right",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
		},
		{
			name:           "caller-supplied hops left of the client are ignored",
			headers:        map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.4, 203.0.113.1, 10.0.0.2"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
		},
		{
			name:           "all hops trusted takes the leftmost",
			headers:        map[string]string{"X-Forwarded-For": "10.0.0.7, 10.0.0.2"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "10.0.0.7",
		},
		{
			name:           "garbage hop before the trusted proxies falls back to peer",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.1, junk, 10.0.0.2"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "10.0.0.1",
		},
		{
			name:           "mapped ipv4 hop is unmapped",
			headers:        map[string]string{"X-Forwarded-For": "::ffff:203.0.113.1"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
		},
		{
			name:           "falls back to X-Real-IP from trusted proxy",
			headers:        map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "198.51.100.7",
		},
		{
			name:           "garbage XFF falls back to peer",
			headers:        map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "10.0.0.1",
		},
		{
			name:           "oversized XFF falls back to peer",
			headers:        map[string]string{"X-Forwarded-For": strings.Repeat("1", MaxForwardedHeaderLength+1)},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "10.0.0.1",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "unparseable peer is unknown",
			remoteAddr: "pipe",
			expectedIP: requestcontext.UnknownClient,
		},
		{
			name:       "empty peer is unknown",
			remoteAddr: "",
			expectedIP: requestcontext.UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewResolver(tt.trustedProxies)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.expectedIP, res.ClientIP(req))
		})
	}
}

func TestResolverHandler(t *testing.T) {
	res, err := NewResolver([]string{"127.0.0.0/8"})
	require.NoError(t, err)

	var captured context.Context
	handler := res.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Context()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	req.Header.Set("User-Agent", "curl/8.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.50", requestcontext.ClientIP(captured))
	assert.Equal(t, "curl/8.0", requestcontext.UserAgent(captured))
}

func TestNewResolverRejectsBadCIDR(t *testing.T) {
	_, err := NewResolver([]string{"10.0.0.0/99"})
	assert.Error(t, err)

	res, err := NewResolver([]string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, res.trustedProxies)
}
