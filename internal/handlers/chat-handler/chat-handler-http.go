package chat_handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/handlers"
	"github.com/xenn00/classroom-chat/internal/middleware"
	chat_service "github.com/xenn00/classroom-chat/internal/use-case/chat-case"
	room_service "github.com/xenn00/classroom-chat/internal/use-case/room-case"
)

// ChatHandler serves read-only snapshots of the caller's rooms. Every change
// goes through the websocket.
type ChatHandler struct {
	Rooms room_service.RoomServiceContract
	Chats chat_service.ChatServiceContract
}

func NewChatHandler(rooms room_service.RoomServiceContract, chats chat_service.ChatServiceContract) *ChatHandler {
	return &ChatHandler{
		Rooms: rooms,
		Chats: chats,
	}
}

func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return app_error.NewAppError(http.StatusUnauthorized, "Unauthorized", "auth")
	}

	rooms, err := h.Rooms.ListRooms(r.Context(), claims.Subject)
	if err != nil {
		return err
	}

	handlers.WriteResponse(w, r, "get rooms", rooms)
	return nil
}

func (h *ChatHandler) GetPublicMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return app_error.NewAppError(http.StatusUnauthorized, "Unauthorized", "auth")
	}

	resp, err := h.Chats.PublicHistory(r.Context(), claims.Subject, chi.URLParam(r, "roomId"))
	if err != nil {
		return err
	}

	handlers.WriteResponse(w, r, "get room messages", *resp)
	return nil
}

func (h *ChatHandler) GetPrivateMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return app_error.NewAppError(http.StatusUnauthorized, "Unauthorized", "auth")
	}

	otherUserID := chi.URLParam(r, "otherUserId")
	if otherUserID == "" || otherUserID == claims.Subject {
		return app_error.Validation("invalid recipient")
	}

	resp, err := h.Chats.PrivateHistory(r.Context(), claims.Subject, chi.URLParam(r, "roomId"), otherUserID)
	if err != nil {
		return err
	}

	handlers.WriteResponse(w, r, "get private messages", *resp)
	return nil
}
