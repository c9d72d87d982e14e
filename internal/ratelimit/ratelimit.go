// Package ratelimit provides fixed-window request limiters keyed by caller.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// Limiter counts attempts per key inside a fixed window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) Decision
	Close()
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

// Remaining returns the attempts left in the current window.
func (d Decision) Remaining(limit int) int {
	if left := limit - d.Count; left > 0 {
		return left
	}
	return 0
}

// ApplyHeaders writes the X-RateLimit-* headers for d.
func ApplyHeaders(w http.ResponseWriter, limit int, d Decision) {
	if limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining(limit)))
	if !d.WindowEnd.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.WindowEnd.Unix(), 10))
		if !d.Allowed {
			secs := int(time.Until(d.WindowEnd).Seconds()) + 1
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.Itoa(secs))
		}
	}
}

// KeyFunc derives a limiter key from a request.
type KeyFunc func(*http.Request) string

// KeyIP keys on the address of the connection. Forwarding headers are ignored
// because any client can set them.
func KeyIP(r *http.Request) string {
	return "ip:" + remoteHost(r)
}

// KeyTrustedProxy reads X-Forwarded-For only on connections from one of the
// trusted networks. The header is walked from the right and the first address
// outside those networks is the key. With no trusted networks it is KeyIP.
func KeyTrustedProxy(trusted []netip.Prefix) KeyFunc {
	if len(trusted) == 0 {
		return KeyIP
	}
	isTrusted := func(addr netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	return func(r *http.Request) string {
		host := remoteHost(r)
		peer, err := netip.ParseAddr(host)
		if err != nil || !isTrusted(peer.Unmap()) {
			return "ip:" + host
		}
		var hops []string
		for _, value := range r.Header.Values("X-Forwarded-For") {
			hops = append(hops, strings.Split(value, ",")...)
		}
		client := peer.Unmap()
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = addr.Unmap()
			if !isTrusted(client) {
				break
			}
		}
		return "ip:" + client.String()
	}
}

// ParsePrefixes parses CIDR ranges or single addresses.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("parse trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return host
}
