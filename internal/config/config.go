package config

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	SessionDriverRedis  = "redis"
	SessionDriverMemory = "memory"
	SessionDriverNone   = "none"

	BlobDriverS3    = "s3"
	BlobDriverLocal = "local"
)

var (
	ErrEmptySecret     = errors.New("token secrets must not be empty")
	ErrSameSecrets     = errors.New("access and refresh secrets must differ")
	ErrInvalidTokenTTL = errors.New("refresh ttl must be longer than access ttl")
	ErrUnknownDriver   = errors.New("unknown driver")
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	HTTP        HTTPConfig        `yaml:"http"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Cookie      CookieConfig      `yaml:"cookie"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Redis       RedisConf         `yaml:"redis"`
	Blob        BlobConfig        `yaml:"blob"`
	S3          S3Config          `yaml:"s3"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Avatar      AvatarConfig      `yaml:"avatar"`
	Password    PasswordConfig    `yaml:"password"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-separator:","`
}

type TokensConfig struct {
	AccessSecret  string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshSecret string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTTL     time.Duration `yaml:"access_ttl" env-default:"30m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env-default:"168h"`
}

type CookieConfig struct {
	Name   string `yaml:"name" env-default:"jwt"`
	Path   string `yaml:"path" env-default:"/auth"`
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure"`
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn" env:"DATABASE_URL" env-required:"true"`
	Migrate bool   `yaml:"migrate"`
}

type SessionsConfig struct {
	Driver string `yaml:"driver" env:"SESSIONS_DRIVER" env-default:"redis"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

type BlobConfig struct {
	Driver string `yaml:"driver" env:"BLOB_DRIVER" env-default:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket" env:"AWS_BUCKET_NAME"`
	Region    string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint" env:"AWS_ENDPOINT_URL"`
	AccessKey string `yaml:"access_key" env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	PathStyle bool   `yaml:"path_style"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url"`
}

type AvatarConfig struct {
	Size           int   `yaml:"size" env-default:"128"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env-default:"5242880"`
}

type PasswordConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env-default:"12"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := LoadPath(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func LoadPath(configPath string) (*Config, error) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.New("config file does not exist: " + configPath)
	}

	cfg := defaults()

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, errors.New("cannot read config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaults holds values for bool options, whose zero value cannot carry an env-default.
func defaults() Config {
	return Config{
		Cookie:   CookieConfig{Secure: true},
		Postgres: PostgresConfig{Migrate: true},
	}
}

func (c *Config) Validate() error {
	if c.Tokens.AccessSecret == "" || c.Tokens.RefreshSecret == "" {
		return ErrEmptySecret
	}
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		return ErrSameSecrets
	}
	if c.Tokens.RefreshTTL <= c.Tokens.AccessTTL {
		return ErrInvalidTokenTTL
	}

	switch c.Sessions.Driver {
	case SessionDriverRedis, SessionDriverMemory, SessionDriverNone:
	default:
		return errors.Join(ErrUnknownDriver, errors.New("sessions: "+c.Sessions.Driver))
	}

	switch c.Blob.Driver {
	case BlobDriverS3, BlobDriverLocal:
	default:
		return errors.Join(ErrUnknownDriver, errors.New("blob: "+c.Blob.Driver))
	}

	return nil
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
