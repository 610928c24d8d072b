package routers

import (
	"crypto/rsa"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/xenn00/classroom-chat/internal/middleware"
	chat_service "github.com/xenn00/classroom-chat/internal/use-case/chat-case"
	room_service "github.com/xenn00/classroom-chat/internal/use-case/room-case"
	user_service "github.com/xenn00/classroom-chat/internal/use-case/user-case"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

type Dependencies struct {
	PublicKey *rsa.PublicKey
	Redis     *redis.Client

	Users user_service.UserServiceContract
	Rooms room_service.RoomServiceContract
	Chats chat_service.ChatServiceContract

	Hub       *websocket.Hub
	WSHandler http.Handler
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)

	r.Handle("/metrics", promhttp.Handler())
	HubRouter(r, deps.Hub)

	r.Group(func(r chi.Router) {
		r.Use(middleware.GetDeviceFingerprint)
		r.Handle("/ws", deps.WSHandler)
		UserRouter(r, deps)
		ChatRouter(r, deps)
	})
	return r
}
