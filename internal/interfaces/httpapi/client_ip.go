package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// Headers set by the edge proxies this service is deployed behind, in order
// of trust. X-Forwarded-For may carry a chain; the first hop is the client.
var clientIPHeaders = []string{
	"Fly-Client-IP",
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// resolveClientIP returns the caller address used for rate limiting and
// request logs, or "unknown" when nothing parses.
func resolveClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		if ip := parseIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}
	return "unknown"
}

func parseIP(raw string) string {
	first, _, _ := strings.Cut(raw, ",")
	value := strings.TrimSpace(first)
	if value == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	if ip := net.ParseIP(strings.Trim(value, "[]")); ip != nil {
		return ip.String()
	}
	return ""
}
