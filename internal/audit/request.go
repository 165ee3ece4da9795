package audit

import (
	"net"
	"net/http"
	"strings"
)

// RequestMeta is the client context attached to every entry.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// MetaFromRequest extracts the client address and user agent. The
// forwarded address takes precedence over the raw connection address so
// entries stay meaningful behind a proxy.
func MetaFromRequest(r *http.Request) RequestMeta {
	if r == nil {
		return RequestMeta{}
	}
	return RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
