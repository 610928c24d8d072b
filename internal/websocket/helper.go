package websocket

import (
	"net"
	"net/http"
	"strings"
)

func (h *WebSocketHandler) authenticateConnection(r *http.Request) (Identity, error) {
	if h.authenticator == nil {
		return Identity{}, &AuthError{Message: "authentication is not configured"}
	}

	identity, err := h.authenticator(r)
	if err != nil {
		return Identity{}, err
	}
	if identity.UserID == "" {
		return Identity{}, &AuthError{Message: "missing user identity"}
	}
	return identity, nil
}

func (h *WebSocketHandler) getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *WebSocketHandler) acquireConnection(clientIP string) bool {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()

	if h.RateLimit.Enabled && h.RateLimit.ConnectionsPerIP > 0 && h.connsPerIP[clientIP] >= h.RateLimit.ConnectionsPerIP {
		return false
	}
	h.connsPerIP[clientIP]++
	return true
}

func (h *WebSocketHandler) releaseConnection(clientIP string) {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()

	h.connsPerIP[clientIP]--
	if h.connsPerIP[clientIP] <= 0 {
		delete(h.connsPerIP, clientIP)
	}
}
