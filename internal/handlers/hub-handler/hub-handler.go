package hub_handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/handlers"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

type HubHandler struct {
	Hub *websocket.Hub
}

func NewHubHandler(hub *websocket.Hub) *HubHandler {
	return &HubHandler{
		Hub: hub,
	}
}

func (h *HubHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	handlers.WriteResponse(w, r, "healthy", map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "websocket-server",
	})
}

func (h *HubHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	handlers.WriteResponse(w, r, "get websocket stats", h.Hub.GetHubStats())
	return nil
}

func (h *HubHandler) HandleGetRoomStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	handlers.WriteResponse(w, r, "get websocket room stats", h.Hub.GetRoomStats(chi.URLParam(r, "roomId")))
	return nil
}
