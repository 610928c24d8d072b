package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"golang.org/x/time/rate"
)

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID   string
	Username string
}

type AuthenticatorFunc func(r *http.Request) (Identity, error)

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

type RateLimitConfig struct {
	Enabled          bool
	ConnectionsPerIP int
	EventsPerSecond  float64
	EventBurst       int
}

type WebSocketHandler struct {
	hub           *Hub
	dispatcher    Dispatcher
	authenticator AuthenticatorFunc
	upgrader      websocket.Upgrader

	MaxConnections int
	RateLimit      RateLimitConfig

	connsPerIP map[string]int
	connsMu    sync.Mutex
}

func NewWebSocketHandler(hub *Hub, dispatcher Dispatcher, authenticator AuthenticatorFunc, maxConnections int, rateLimit RateLimitConfig) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		dispatcher:    dispatcher,
		authenticator: authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		MaxConnections: maxConnections,
		RateLimit:      rateLimit,
		connsPerIP:     make(map[string]int),
	}
}

// ServeHTTP authenticates before upgrading, so an unauthenticated request
// never becomes a connection.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticateConnection(r)
	if err != nil {
		log.Warn().Err(err).Msg("ws: authentication failed")
		writeError(w, app_error.NewAppError(http.StatusUnauthorized, err.Error(), "auth"))
		return
	}

	if h.MaxConnections > 0 && h.hub.Registry.Count() >= h.MaxConnections {
		writeError(w, app_error.NewAppError(http.StatusServiceUnavailable, "too many connections", "ws"))
		return
	}

	clientIP := h.getClientIP(r)
	if !h.acquireConnection(clientIP) {
		log.Warn().Str("ip", clientIP).Str("userID", identity.UserID).Msg("ws: connection limit per ip reached")
		writeError(w, app_error.NewAppError(http.StatusTooManyRequests, "too many connections from this address", "ws"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.releaseConnection(clientIP)
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	var limiter *rate.Limiter
	if h.RateLimit.Enabled && h.RateLimit.EventsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.RateLimit.EventsPerSecond), h.RateLimit.EventBurst)
	}

	client := NewClient(conn, identity.UserID, identity.Username, limiter)
	h.hub.Connect(client)
	client.Start(h.hub, h.dispatcher)

	go func() {
		<-client.Done()
		h.releaseConnection(clientIP)
	}()
}

func writeError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
