package user_dto

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=40"`
}
