package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var (
	xForwardedFor = http.CanonicalHeaderKey("X-Forwarded-For")
	xRealIP       = http.CanonicalHeaderKey("X-Real-IP")
)

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when
// the direct peer is inside one of the trusted proxy prefixes. Requests from
// any other peer keep their socket address, so a client cannot pick its own
// rate limit bucket by sending a forged header.
//
// X-Forwarded-For is walked right to left and the first address outside the
// trusted set wins.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, ok := parseAddr(r.RemoteAddr)
			if ok && isTrusted(peer, trusted) {
				if ip, found := forwardedClient(r, trusted); found {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := r.Header.Values(xForwardedFor); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				// Anything left of a garbled hop was written by an untrusted party.
				return netip.Addr{}, false
			}
			ip = ip.Unmap()
			if !isTrusted(ip, trusted) {
				return ip, true
			}
		}
		return netip.Addr{}, false
	}

	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(xRealIP))); err == nil {
		return ip.Unmap(), true
	}
	return netip.Addr{}, false
}

// parseAddr accepts both "host:port" and a bare host.
func parseAddr(addr string) (netip.Addr, bool) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

func isTrusted(ip netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
