package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auth_service/internal/domain/models"
	"auth_service/internal/storage"
	redisapp "auth_service/internal/storage/redis"

	"github.com/redis/go-redis/v9"
)

type RedisSessionRepo struct {
	Client *redisapp.Client
	now    func() time.Time
}

func NewRedisSessionRepo(client *redisapp.Client) *RedisSessionRepo {
	return &RedisSessionRepo{Client: client, now: time.Now}
}

func (r *RedisSessionRepo) SaveSession(ctx context.Context, session models.Session) error {
	const op = "repository.session_repository.SaveSession"

	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%s: %s: %w", op, session.ID, storage.ErrSessionExpired)
	}

	if err := r.Client.Set(ctx, sessionKey(session.ID), session.UserID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisSessionRepo) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	const op = "repository.session_repository.SessionExists"

	_, err := r.Client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (r *RedisSessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "repository.session_repository.DeleteSession"

	if err := r.Client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
