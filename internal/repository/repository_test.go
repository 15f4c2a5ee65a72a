package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"auth_service/internal/domain/models"
	"auth_service/internal/storage"
	"auth_service/internal/storage/postgresql"
	redisapp "auth_service/internal/storage/redis"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testCtx = context.Background()
	fixedAt = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
)

func NewMockClient() (*redisapp.Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &redisapp.Client{Client: db}, mock
}

func setupRepo() (*RedisSessionRepo, redismock.ClientMock) {
	db, mock := NewMockClient()
	repo := NewRedisSessionRepo(db)
	repo.now = func() time.Time { return fixedAt }
	return repo, mock
}

func TestSaveSession(t *testing.T) {
	repo, mock := setupRepo()
	session := models.Session{
		ID:        "sid-1",
		UserID:    uuid.New(),
		ExpiresAt: fixedAt.Add(7 * 24 * time.Hour),
	}

	t.Run("successful save", func(t *testing.T) {
		mock.ExpectSet(sessionKey(session.ID), session.UserID.String(), 7*24*time.Hour).SetVal("OK")
		err := repo.SaveSession(testCtx, session)
		assert.NoError(t, err)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSet(sessionKey(session.ID), session.UserID.String(), 7*24*time.Hour).SetErr(redis.ErrClosed)
		err := repo.SaveSession(testCtx, session)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})

	t.Run("already expired", func(t *testing.T) {
		expired := session
		expired.ExpiresAt = fixedAt.Add(-time.Second)
		err := repo.SaveSession(testCtx, expired)
		assert.ErrorIs(t, err, storage.ErrSessionExpired)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionExists(t *testing.T) {
	repo, mock := setupRepo()
	sessionID := "sid-1"

	t.Run("session exists", func(t *testing.T) {
		mock.ExpectGet(sessionKey(sessionID)).SetVal(uuid.NewString())
		exists, err := repo.SessionExists(testCtx, sessionID)
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("session not exists", func(t *testing.T) {
		mock.ExpectGet(sessionKey(sessionID)).RedisNil()
		exists, err := repo.SessionExists(testCtx, sessionID)
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectGet(sessionKey(sessionID)).SetErr(redis.ErrClosed)
		_, err := repo.SessionExists(testCtx, sessionID)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSession(t *testing.T) {
	repo, mock := setupRepo()
	sessionID := "sid-1"

	t.Run("successful delete", func(t *testing.T) {
		mock.ExpectDel(sessionKey(sessionID)).SetVal(1)
		err := repo.DeleteSession(testCtx, sessionID)
		assert.NoError(t, err)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectDel(sessionKey(sessionID)).SetErr(redis.ErrClosed)
		err := repo.DeleteSession(testCtx, sessionID)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySessionRepo(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour, time.Minute)
	session := models.Session{
		ID:        "sid-1",
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	exists, err := repo.SessionExists(testCtx, session.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.SaveSession(testCtx, session))

	exists, err = repo.SessionExists(testCtx, session.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteSession(testCtx, session.ID))

	exists, err = repo.SessionExists(testCtx, session.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemorySessionRepo_Expiry(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour, time.Minute)
	session := models.Session{
		ID:        "sid-short",
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	}

	require.NoError(t, repo.SaveSession(testCtx, session))

	assert.Eventually(t, func() bool {
		exists, _ := repo.SessionExists(testCtx, session.ID)
		return !exists
	}, time.Second, 10*time.Millisecond)
}

func TestSessionRepositories_RejectExpired(t *testing.T) {
	redisRepo, mock := setupRepo()
	memoryRepo := NewMemorySessionRepo(time.Hour, time.Minute)
	memoryRepo.now = func() time.Time { return fixedAt }

	expired := models.Session{
		ID:        "sid-expired",
		UserID:    uuid.New(),
		ExpiresAt: fixedAt.Add(-time.Minute),
	}

	for name, repo := range map[string]SessionRepository{
		"redis":  redisRepo,
		"memory": memoryRepo,
	} {
		t.Run(name, func(t *testing.T) {
			err := repo.SaveSession(testCtx, expired)
			assert.ErrorIs(t, err, storage.ErrSessionExpired)
		})
	}

	exists, err := memoryRepo.SessionExists(testCtx, expired.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatelessSessions(t *testing.T) {
	var repo SessionRepository = StatelessSessions{}

	require.NoError(t, repo.SaveSession(testCtx, models.Session{ID: "x"}))
	require.NoError(t, repo.DeleteSession(testCtx, "x"))

	exists, err := repo.SessionExists(testCtx, "x")
	require.NoError(t, err)
	assert.True(t, exists)
}

func setupTestDB(t *testing.T) *postgresql.Storage {
	t.Helper()

	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run postgres integration tests")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(t, postgresql.Migrate(ctx, dsn))

	st, err := postgresql.New(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Stop()
		_ = pgContainer.Terminate(ctx)
	})

	return st
}

func TestUserRepo_Integration(t *testing.T) {
	st := setupTestDB(t)
	repo := NewRepository(st.Pool())

	user := models.User{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: []byte("$2a$12$hash"),
		Avatar:   uuid.NewString() + ".png",
	}

	t.Run("save and load by email", func(t *testing.T) {
		id, err := repo.User.SaveUser(testCtx, user)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, id)

		got, err := repo.User.User(testCtx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, user.Username, got.Username)
		assert.Equal(t, user.Password, got.Password)
		assert.Equal(t, user.Avatar, got.Avatar)

		byID, err := repo.User.UserByID(testCtx, id)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.User.SaveUser(testCtx, user)
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("concurrent duplicate signup creates one record", func(t *testing.T) {
		dup := user
		dup.Email = gofakeit.Email()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			exists  int
		)

		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.User.SaveUser(testCtx, dup)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case assert.ErrorIs(t, err, storage.ErrUserExists):
					exists++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Equal(t, 4, exists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.User.User(testCtx, "missing@example.com")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		_, err = repo.User.UserByID(testCtx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}
