package dto

import "github.com/noah-isme/student-hub-api/internal/models"

// RegisterRequest creates a principal.
type RegisterRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required,min=6,max=72"`
	FullName   string          `json:"full_name" validate:"required"`
	Role       models.UserRole `json:"role" validate:"required,oneof=student faculty admin"`
	Department *string         `json:"department"`
	Year       *string         `json:"year"`
}

// TokenRequest mirrors the OAuth2 password grant form; username holds the email.
type TokenRequest struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// UpdateProfileRequest is the allow-list of self-service fields. Absent keys are left untouched;
// an empty department or year clears the value.
type UpdateProfileRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=1"`
	Department *string `json:"department"`
	Year       *string `json:"year"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}
