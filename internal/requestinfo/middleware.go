// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
Mounted ahead of the contact routes.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is loaded.
  4. Stores a `*RequestInfo` in `request.Context` so the rate limiter and
     the store backend can read it without reparsing.

Notes
-----
  • Forwarded headers are trusted only when trustProxy is true; otherwise a
    client could pick its own rate-limit key.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *RequestInfo and forwards.
func Enrich(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trustProxy)

			info := &RequestInfo{
				UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       lookupGeo(ip),
				Timestamp: time.Now().UTC(),
			}

			zap.S().Debugw("request info",
				"ip", info.Geo.IP,
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), info)))
		})
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// ClientIP returns the client address.  When trustProxy is set it walks
// X-Forwarded-For from the right and returns the first hop that is not a
// private or loopback address, i.e. the one our own proxy appended.  Entries
// further left are client-supplied and ignored.  When every hop is internal
// the right-most one wins.  X-Real-IP is consulted only without
// X-Forwarded-For.  Otherwise r.RemoteAddr ("ip:port") is used.
func ClientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := forwardedFor(r.Header.Values("X-Forwarded-For")); ip != nil {
			return ip
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}

// forwardedFor picks the right-most external hop across every
// X-Forwarded-For header line.
func forwardedFor(lines []string) net.IP {
	var hops []net.IP
	for _, line := range lines {
		for _, part := range strings.Split(line, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				hops = append(hops, ip)
			}
		}
	}
	if len(hops) == 0 {
		return nil
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !internal(hops[i]) {
			return hops[i]
		}
	}
	return hops[len(hops)-1]
}

func internal(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
