package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when
// the socket peer sits inside one of the trusted prefixes. With no trusted
// prefixes it is a no-op and forwarding headers are never believed.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedClient(r, trusted); ok {
				r.RemoteAddr = net.JoinHostPort(ip.String(), "0")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	peer, ok := parseAddr(clientIP(r))
	if !ok || !isTrusted(peer, trusted) {
		return netip.Addr{}, false
	}

	var hops []netip.Addr
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, ok := parseAddr(part); ok {
			hops = append(hops, ip)
		}
	}
	// Walk right to left: the nearest hop not run by us is the client.
	for i := len(hops) - 1; i >= 0; i-- {
		if !isTrusted(hops[i], trusted) {
			return hops[i], true
		}
	}
	if len(hops) > 0 {
		return hops[0], true
	}
	return parseAddr(r.Header.Get("X-Real-IP"))
}

func isTrusted(ip netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

func parseAddr(value string) (netip.Addr, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(value); err == nil {
		return ap.Addr().Unmap(), true
	}
	ip, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap().WithZone(""), true
}
