package api

// Request DTOs

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email_addr"`
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,strong_password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email_addr"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

type ChangeEmailRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email" validate:"required,email_addr"`
}

// CodeRequest carries a code delivered by email (verification or email change).
type CodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Response DTOs

type RegisterResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token,omitempty"` // for non-cookie clients
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SessionStateResponse mirrors the session provider state.
type SessionStateResponse struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Uid        string `json:"uid,omitempty"`
}
