// Package metadata resolves the caller's network identity. The resolved
// address is the key every per-client quota is counted under.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"folio/pkg/requestcontext"
)

// MaxForwardedHeaderLength caps X-Forwarded-For / X-Real-IP before parsing.
const MaxForwardedHeaderLength = 500

// Resolver extracts a client address from a request. Forwarded headers are
// honoured only when the direct peer is inside one of TrustedProxies, and
// only up to the nearest hop that is not.
type Resolver struct {
	trustedProxies []netip.Prefix
}

// NewResolver builds a Resolver from CIDR strings such as "10.0.0.0/8".
func NewResolver(trustedProxies []string) (*Resolver, error) {
	prefixes := make([]netip.Prefix, 0, len(trustedProxies))
	for _, cidr := range trustedProxies {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return &Resolver{trustedProxies: prefixes}, nil
}

// Handler stores the resolved address and User-Agent in the request context.
func (res *Resolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the best-effort client address, or
// requestcontext.UnknownClient when nothing usable is present.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer, ok := parsePeer(r.RemoteAddr)
	if !ok {
		return requestcontext.UnknownClient
	}
	if !res.trusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && len(xff) <= MaxForwardedHeaderLength {
		if addr, ok := res.forwardedClient(xff); ok {
			return addr.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" && len(xri) <= MaxForwardedHeaderLength {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer.String()
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop outside the trusted proxies. Entries left of that hop are caller
// supplied and never used. When every hop is trusted the leftmost one wins.
// An unparseable hop ends the walk.
func (res *Resolver) forwardedClient(xff string) (netip.Addr, bool) {
	hops := strings.Split(xff, ",")
	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		last = addr.Unmap()
		if !res.trusted(last) {
			return last, true
		}
	}
	return last, last.IsValid()
}

func (res *Resolver) trusted(addr netip.Addr) bool {
	for _, prefix := range res.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parsePeer(remoteAddr string) (netip.Addr, bool) {
	if remoteAddr == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	// httptest and some proxies hand over a bare address.
	if addr, err := netip.ParseAddr(strings.Trim(remoteAddr, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
