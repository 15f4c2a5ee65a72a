package repository

import (
	"context"

	"auth_service/internal/domain/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user models.User) (uuid.UUID, error)
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// SessionRepository tracks issued refresh tokens by their session id.
type SessionRepository interface {
	SaveSession(ctx context.Context, session models.Session) error
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
}
