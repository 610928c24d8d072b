package user_handler

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/xenn00/classroom-chat/internal/dtos/user_dto"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/handlers"
	"github.com/xenn00/classroom-chat/internal/middleware"
	user_service "github.com/xenn00/classroom-chat/internal/use-case/user-case"
)

type UserHandler struct {
	Validate *validator.Validate
	Service  user_service.UserServiceContract
}

func NewUserHandler(service user_service.UserServiceContract) *UserHandler {
	return &UserHandler{
		Validate: validator.New(),
		Service:  service,
	}
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req user_dto.LoginRequest
	if err := handlers.DecodeBody(r, &req); err != nil {
		return err
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	fp := middleware.Fingerprint(r.Context())
	if fp == "" {
		return app_error.NewAppError(http.StatusBadRequest, "Missing device fingerprint", "fingerprint")
	}

	resp, err := h.Service.Login(r.Context(), req, fp)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    resp.AccessToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  resp.ExpiresAt,
	})

	handlers.WriteResponse(w, r, "user logged in successfully", *resp)
	return nil
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return app_error.NewAppError(http.StatusUnauthorized, "Unauthorized", "auth")
	}

	resp, err := h.Service.Me(r.Context(), claims.Subject, middleware.Fingerprint(r.Context()))
	if err != nil {
		return err
	}

	handlers.WriteResponse(w, r, "get current user", *resp)
	return nil
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return app_error.NewAppError(http.StatusUnauthorized, "Unauthorized", "auth")
	}
	fp := middleware.Fingerprint(r.Context())

	if err := h.Service.Logout(r.Context(), claims.Subject, fp); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})

	handlers.WriteResponse(w, r, "user logged out successfully", map[string]bool{"ok": true})
	return nil
}
