package repository

import (
	"context"
	"fmt"
	"time"

	"auth_service/internal/domain/models"
	"auth_service/internal/storage"

	"github.com/patrickmn/go-cache"
)

// MemorySessionRepo keeps sessions in process memory. Sessions are lost on restart
// and are not shared between replicas.
type MemorySessionRepo struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewMemorySessionRepo(defaultTTL, cleanupInterval time.Duration) *MemorySessionRepo {
	return &MemorySessionRepo{
		cache: cache.New(defaultTTL, cleanupInterval),
		now:   time.Now,
	}
}

func (r *MemorySessionRepo) SaveSession(_ context.Context, session models.Session) error {
	const op = "repository.session_cache.SaveSession"

	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%s: %s: %w", op, session.ID, storage.ErrSessionExpired)
	}

	r.cache.Set(sessionKey(session.ID), session.UserID.String(), ttl)

	return nil
}

func (r *MemorySessionRepo) SessionExists(_ context.Context, sessionID string) (bool, error) {
	_, ok := r.cache.Get(sessionKey(sessionID))
	return ok, nil
}

func (r *MemorySessionRepo) DeleteSession(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionKey(sessionID))
	return nil
}

// StatelessSessions accepts every session. Refresh tokens stay valid until they expire,
// even after logout.
type StatelessSessions struct{}

func (StatelessSessions) SaveSession(context.Context, models.Session) error { return nil }

func (StatelessSessions) SessionExists(context.Context, string) (bool, error) { return true, nil }

func (StatelessSessions) DeleteSession(context.Context, string) error { return nil }
