package dto

import (
	"mime/multipart"

	"auth_service/internal/domain/models"
)

// SignupInput is bound from the multipart signup form. Avatar is attached by the handler.
type SignupInput struct {
	Username string                `form:"username" json:"username" validate:"required,min=2,max=64"`
	Email    string                `form:"email" json:"email" validate:"required,email,max=254"`
	Password string                `form:"password" json:"password" validate:"required,min=8,max=72"`
	Avatar   *multipart.FileHeader `form:"-" json:"-" validate:"required"`
}

func (input SignupInput) ToDomain(passwordHash []byte, avatarKey string) models.User {
	return models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: passwordHash,
		Avatar:   avatarKey,
	}
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
