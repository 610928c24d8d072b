package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/classroom-chat/internal/handlers"
	chat_handler "github.com/xenn00/classroom-chat/internal/handlers/chat-handler"
	"github.com/xenn00/classroom-chat/internal/middleware"
)

func ChatRouter(r chi.Router, deps Dependencies) {
	chatHandler := chat_handler.NewChatHandler(deps.Rooms, deps.Chats)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.PublicKey, deps.Redis))
		protected.Get("/api/v1/rooms", handlers.WrapHandler(chatHandler.ListRooms))
		protected.Get("/api/v1/rooms/{roomId}/messages", handlers.WrapHandler(chatHandler.GetPublicMessages))
		protected.Get("/api/v1/rooms/{roomId}/private/{otherUserId}", handlers.WrapHandler(chatHandler.GetPrivateMessages))
	})
}
