package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"auth_service/internal/domain/models"
	"auth_service/internal/lib/logger/sl"
	"auth_service/internal/metrics"
	"auth_service/internal/services/avatar"
	"auth_service/internal/storage"
	"auth_service/internal/transport/http/dto"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExist          = errors.New("user already exist")
	ErrInvalidUserData    = errors.New("invalid user data")
	ErrInvalidAvatar      = errors.New("invalid avatar")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokens      TokenIssuer
	avatars     AvatarIngester
	hasher      PasswordHasher
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (uuid.UUID, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type TokenIssuer interface {
	IssueSessionTokens(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error)
	VerifyAndRefresh(ctx context.Context, refreshToken string) (string, error)
	EndSession(ctx context.Context, refreshToken string) error
}

type AvatarIngester interface {
	Ingest(ctx context.Context, file *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, key string) error
}

func New(log *slog.Logger, userSaver UserSaver, userProvider UserProvider, tokens TokenIssuer, avatars AvatarIngester, hasher PasswordHasher) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokens:      tokens,
		avatars:     avatars,
		hasher:      hasher,
	}
}

// Login checks credentials and issues a session. No tokens are issued unless the
// password matches.
func (a *Auth) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login user")

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			a.hasher.CompareDummy(password)
			metrics.AuthFailures.WithLabelValues("login", "user_not_found").Inc()

			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.hasher.Compare(user.Password, password); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		metrics.AuthFailures.WithLabelValues("login", "invalid_password").Inc()

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := a.tokens.IssueSessionTokens(ctx, user.ID)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully")

	return tokens, nil
}

// Signup creates a user with a normalized avatar. It does not log the user in.
func (a *Auth) Signup(ctx context.Context, input dto.SignupInput) (uuid.UUID, error) {
	const op = "auth.Signup"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", input.Email),
	)

	log.Info("register user")

	_, err := a.usrProvider.User(ctx, input.Email)
	switch {
	case err == nil:
		log.Warn("user already exist")

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExist)
	case !errors.Is(err, storage.ErrUserNotFound):
		log.Error("failed to check existing user", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	avatarKey, err := a.avatars.Ingest(ctx, input.Avatar)
	if err != nil {
		if errors.Is(err, avatar.ErrNoFile) || errors.Is(err, avatar.ErrInvalidImage) || errors.Is(err, avatar.ErrFileTooLarge) {
			log.Warn("avatar rejected", sl.Err(err))

			return uuid.Nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidAvatar, err)
		}
		log.Error("failed to store avatar", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hasher.Hash(input.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		a.discardAvatar(ctx, avatarKey)

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, input.ToDomain(passHash, avatarKey))
	if err != nil {
		a.discardAvatar(ctx, avatarKey)

		switch {
		case errors.Is(err, storage.ErrUserExists):
			log.Warn("user already exist", sl.Err(err))

			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExist)
		case errors.Is(err, storage.ErrUserNotSaved):
			log.Warn("user record not created", sl.Err(err))

			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidUserData)
		}

		log.Error("failed to save user", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if id == uuid.Nil {
		log.Warn("user record not created")
		a.discardAvatar(ctx, avatarKey)

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidUserData)
	}

	log.Info("user registered", slog.String("user_id", id.String()))

	return id, nil
}

func (a *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	accessToken, err := a.tokens.VerifyAndRefresh(ctx, refreshToken)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("refresh", "invalid_token").Inc()

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return accessToken, nil
}

func (a *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "auth.Logout"

	if err := a.tokens.EndSession(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) Profile(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "auth.Profile"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// discardAvatar removes an avatar that no user record points to. The request
// context may already be cancelled, so the cleanup detaches from it.
func (a *Auth) discardAvatar(ctx context.Context, key string) {
	if err := a.avatars.Remove(context.WithoutCancel(ctx), key); err != nil {
		a.log.Warn("failed to remove orphaned avatar", slog.String("key", key), sl.Err(err))
	}
}
