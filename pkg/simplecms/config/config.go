// Package config builds a configured Service from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-cms/pkg/simplecms"
	memoryrepo "github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	postgresrepo "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
	memorystorage "github.com/tendant/simple-cms/pkg/simplecms/storage/memory"
	s3storage "github.com/tendant/simple-cms/pkg/simplecms/storage/s3"
)

// ServerConfig represents server configuration for the simple-cms service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// API key material for the management routes; empty disables the guard
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:""`

	// Database configuration: "memory" or "postgres"
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DB           DbConfig

	// Storage configuration: "memory" or "s3"
	StorageType string `env:"STORAGE_TYPE" env-default:"memory"`
	S3          S3Config

	// RunMigrations creates missing tables from the registered schema
	RunMigrations bool `env:"RUN_MIGRATIONS" env-default:"true"`
}

type DbConfig struct {
	Port     uint16 `env:"CMS_PG_PORT" env-default:"5432"`
	Host     string `env:"CMS_PG_HOST" env-default:"localhost"`
	Name     string `env:"CMS_PG_NAME" env-default:"cms_db"`
	User     string `env:"CMS_PG_USER" env-default:"cms"`
	Password string `env:"CMS_PG_PASSWORD" env-default:"pwd"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"cms-assets"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

// LoadServerConfig reads the configuration from the environment.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.StorageType != "memory" && c.StorageType != "s3" {
		return errors.New("storage_type must be 'memory' or 's3'")
	}
	return nil
}

// BuildService wires the repository, the blob store and the registry into
// a Service. The caller owns the returned pool's lifecycle; it is nil for
// the memory repository.
func (c *ServerConfig) BuildService(ctx context.Context, registry *simplecms.Registry) (simplecms.Service, *pgxpool.Pool, error) {
	var repo simplecms.Repository
	var pool *pgxpool.Pool

	switch c.DatabaseType {
	case "postgres":
		var err error
		pool, err = pgxpool.New(ctx, c.DB.toDatabaseUrl())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		pgRepo := postgresrepo.NewWithPool(pool)
		if c.RunMigrations {
			if err := pgRepo.Migrate(ctx, registry); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		repo = pgRepo
	default:
		repo = memoryrepo.New()
	}

	var store simplecms.BlobStore
	switch c.StorageType {
	case "s3":
		var err error
		store, err = s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.BucketName,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
	default:
		store = memorystorage.New()
	}

	svc, err := simplecms.New(
		simplecms.WithRegistry(registry),
		simplecms.WithRepository(repo),
		simplecms.WithBlobStore(store),
	)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}

	return svc, pool, nil
}
