package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auth_service/internal/domain/models"
	"auth_service/internal/lib/jwt"
	"auth_service/internal/lib/logger/sl"
	"auth_service/internal/metrics"
	"auth_service/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionRevoked = errors.New("session revoked")
)

const (
	AccessTokenExpire  = 30 * time.Minute
	RefreshTokenExpire = 7 * 24 * time.Hour
)

// Config holds the signing material. It is read once at startup and never mutated.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type TokenService struct {
	log      *slog.Logger
	cfg      Config
	sessions repository.SessionRepository
	now      func() time.Time
}

func NewTokenService(log *slog.Logger, cfg Config, sessions repository.SessionRepository) *TokenService {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = AccessTokenExpire
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = RefreshTokenExpire
	}
	if sessions == nil {
		sessions = repository.StatelessSessions{}
	}

	return &TokenService{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTTL
}

// IssueSessionTokens mints an access/refresh pair for userID and registers the
// refresh token's session id.
func (s *TokenService) IssueSessionTokens(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	const op = "token_service.IssueSessionTokens"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	now := s.now()

	refreshToken, refreshClaims, err := jwt.NewToken(userID, "", s.cfg.RefreshSecret, now, s.cfg.RefreshTTL)
	if err != nil {
		log.Error("failed to sign refresh token", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// the refresh token's jti doubles as the session id
	sessionID := refreshClaims.ID

	accessToken, accessClaims, err := jwt.NewToken(userID, sessionID, s.cfg.AccessSecret, now, s.cfg.AccessTTL)
	if err != nil {
		log.Error("failed to sign access token", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.sessions.SaveSession(ctx, models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	})
	if err != nil {
		log.Error("failed to save session", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.TokensIssued.WithLabelValues(metrics.TokenAccess).Inc()
	metrics.TokensIssued.WithLabelValues(metrics.TokenRefresh).Inc()

	log.Debug("session tokens issued", slog.String("session_id", sessionID))

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		SessionID:        sessionID,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// VerifyAndRefresh mints a new access token from a valid refresh token.
// The refresh token is not rotated and stays valid until its own expiry.
func (s *TokenService) VerifyAndRefresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "token_service.VerifyAndRefresh"

	log := s.log.With(
		slog.String("op", op),
	)

	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		log.Info("refresh token rejected", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.sessions.SessionExists(ctx, claims.ID)
	if err != nil {
		log.Error("failed to check session", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		log.Info("session revoked", slog.String("session_id", claims.ID))

		return "", fmt.Errorf("%s: %w", op, ErrSessionRevoked)
	}

	accessToken, _, err := jwt.NewToken(claims.UserUUID(), claims.ID, s.cfg.AccessSecret, s.now(), s.cfg.AccessTTL)
	if err != nil {
		log.Error("failed to sign access token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.TokensIssued.WithLabelValues(metrics.TokenAccess).Inc()

	return accessToken, nil
}

// EndSession forgets the session behind refreshToken. Tokens that no longer parse
// are ignored: there is nothing left to revoke.
func (s *TokenService) EndSession(ctx context.Context, refreshToken string) error {
	const op = "token_service.EndSession"

	log := s.log.With(
		slog.String("op", op),
	)

	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		log.Debug("ignoring unusable refresh token on logout", sl.Err(err))

		return nil
	}

	if err := s.sessions.DeleteSession(ctx, claims.ID); err != nil {
		log.Error("failed to delete session", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ParseAccessToken validates an access token and returns its claims.
func (s *TokenService) ParseAccessToken(accessToken string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(accessToken, s.cfg.AccessSecret, s.now)
	if err != nil {
		return nil, translate(err)
	}

	return claims, nil
}

func (s *TokenService) parseRefresh(refreshToken string) (*jwt.Claims, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := jwt.ParseToken(refreshToken, s.cfg.RefreshSecret, s.now)
	if err != nil {
		return nil, translate(err)
	}

	if claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func translate(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrInvalidToken
}
