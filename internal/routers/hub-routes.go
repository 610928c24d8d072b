package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/classroom-chat/internal/handlers"
	hub_handler "github.com/xenn00/classroom-chat/internal/handlers/hub-handler"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

func HubRouter(r chi.Router, wsHub *websocket.Hub) {
	hubHandler := hub_handler.NewHubHandler(wsHub)
	r.Get("/api/v1/health", hubHandler.HandleHealth)
	r.Get("/api/v1/stats", handlers.WrapHandler(hubHandler.HandleGetStats))
	r.Get("/api/v1/rooms/{roomId}/stats", handlers.WrapHandler(hubHandler.HandleGetRoomStats))
}
