package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// FromRequest starts an entry for an HTTP action with client details filled.
// Metadata that fails to encode is dropped.
func FromRequest(r *http.Request, action string, meta map[string]any) Entry {
	entry := Entry{Action: action}
	if len(meta) > 0 {
		if payload, err := json.Marshal(meta); err == nil {
			entry.Metadata = payload
		}
	}
	if r == nil {
		return entry
	}
	entry.IP = ClientIP(r)
	entry.UserAgent = r.UserAgent()
	return entry
}

// ClientIP returns the first forwarded address, then X-Real-IP, then the
// remote host.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
