package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	httpapp "auth_service/internal/app/http"
	"auth_service/internal/config"
	"auth_service/internal/lib/logger/sl"
	"auth_service/internal/repository"
	"auth_service/internal/services/auth"
	"auth_service/internal/services/avatar"
	tokens "auth_service/internal/services/token_service"
	filestorage "auth_service/internal/storage/filestorage"
	"auth_service/internal/storage/postgresql"
	redisapp "auth_service/internal/storage/redis"
	s3storage "auth_service/internal/storage/s3"
	httprouters "auth_service/internal/transport/http"
)

const sessionCleanupInterval = 10 * time.Minute

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	storage    *postgresql.Storage
	redis      *redisapp.Client
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	if cfg.Postgres.Migrate {
		if err := postgresql.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	storage, err := postgresql.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	application := &App{
		log:     log,
		storage: storage,
	}

	repo := repository.NewRepository(storage.Pool())

	sessions, err := application.sessionRepository(ctx, cfg)
	if err != nil {
		application.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	blobs, uploadsDir, err := blobStore(ctx, cfg)
	if err != nil {
		application.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokenService := tokens.NewTokenService(log, tokens.Config{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	}, sessions)

	avatarService := avatar.New(log, blobs, cfg.Avatar.Size, cfg.Avatar.MaxUploadBytes)

	authService := auth.New(log, repo.User, repo.User, tokenService, avatarService, auth.NewBcryptHasher(cfg.Password.BcryptCost))

	routers := httprouters.NewRouter(log, authService, avatarService, httprouters.CookieOptions{
		Name:   cfg.Cookie.Name,
		Path:   cfg.Cookie.Path,
		Domain: cfg.Cookie.Domain,
		Secure: cfg.Cookie.Secure,
		MaxAge: tokenService.RefreshTTL(),
	})

	application.HTTPServer = httpapp.New(log, httpapp.Config{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		UploadsDir:      uploadsDir,
	}, routers, tokenService)
	application.HTTPServer.BuildRouters()

	return application, nil
}

// Stop releases the storage connections. The HTTP server is stopped separately.
func (a *App) Stop() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", sl.Err(err))
		}
	}

	if a.storage != nil {
		a.storage.Stop()
	}
}

func (a *App) sessionRepository(ctx context.Context, cfg *config.Config) (repository.SessionRepository, error) {
	switch cfg.Sessions.Driver {
	case config.SessionDriverRedis:
		client := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err := client.HealthCheck(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client

		return repository.NewRedisSessionRepo(client), nil
	case config.SessionDriverMemory:
		return repository.NewMemorySessionRepo(cfg.Tokens.RefreshTTL, sessionCleanupInterval), nil
	default:
		a.log.Warn("session registry disabled, logout does not revoke refresh tokens")

		return repository.StatelessSessions{}, nil
	}
}

// blobStore returns the avatar store and, for the local driver, the directory to serve.
func blobStore(ctx context.Context, cfg *config.Config) (avatar.BlobStore, string, error) {
	if cfg.Blob.Driver == config.BlobDriverLocal {
		store, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
		if err != nil {
			return nil, "", err
		}

		return store, store.GetBaseDir(), nil
	}

	store, err := s3storage.New(ctx, s3storage.Options{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		PathStyle: cfg.S3.PathStyle,
	})
	if err != nil {
		return nil, "", err
	}

	return store, "", nil
}
