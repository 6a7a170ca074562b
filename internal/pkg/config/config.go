package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=1h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// AuthRateLimit is the sustained number of /auth requests per second
	// allowed from one client IP.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`

	Mongo     MongoConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Broadcast BroadcastConfig
	Storage   StorageConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=social"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type NATSConfig struct {
	URL string `env:"NATS_URL, default=nats://127.0.0.1:4222"`
}

// BroadcastConfig selects how post events reach listeners: "local" keeps
// them in process, "redis" and "nats" relay them across instances.
type BroadcastConfig struct {
	Driver  string `env:"BROADCAST_DRIVER,  default=local"`
	Channel string `env:"BROADCAST_CHANNEL"`
}

type StorageConfig struct {
	Driver         string `env:"STORAGE_DRIVER,   default=local"`
	UploadDir      string `env:"UPLOAD_DIR,       default=images"`
	MaxUploadBytes int64  `env:"UPLOAD_MAX_BYTES, default=10485760"`
	CleanupWorkers int    `env:"CLEANUP_WORKERS,  default=4"`

	S3 S3Config
}

type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION, default=us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	PublicURL       string `env:"S3_PUBLIC_URL"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file and then the environment using
// go-envconfig. Variables already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Broadcast.Driver {
	case "local", "redis", "nats":
	default:
		return fmt.Errorf("unknown BROADCAST_DRIVER %q", c.Broadcast.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" || c.Storage.S3.PublicURL == "" {
			return errors.New("S3_BUCKET and S3_PUBLIC_URL are required with STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}
