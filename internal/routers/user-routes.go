package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/classroom-chat/internal/handlers"
	user_handler "github.com/xenn00/classroom-chat/internal/handlers/user-handler"
	"github.com/xenn00/classroom-chat/internal/middleware"
)

func UserRouter(r chi.Router, deps Dependencies) {
	userHandler := user_handler.NewUserHandler(deps.Users)

	r.Post("/api/v1/auth/login", handlers.WrapHandler(userHandler.Login))
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.PublicKey, deps.Redis))
		protected.Get("/api/v1/auth/me", handlers.WrapHandler(userHandler.Me))
		protected.Post("/api/v1/auth/logout", handlers.WrapHandler(userHandler.Logout))
	})
}
