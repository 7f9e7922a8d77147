// Package initial opens connections to the backing services at startup.
package initial

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"coursehub/pkg/config"
	"coursehub/pkg/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	slogGorm "github.com/orandin/slog-gorm"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const enums = `
DO $$ BEGIN
	CREATE TYPE user_role AS ENUM ('user', 'pro', 'admin');
EXCEPTION
	WHEN duplicate_object THEN null;
END $$;
`

// ConDB opens postgres with queries logged through logger. Development
// logs every query, other environments only slow ones and errors.
func ConDB(cfg config.DB, logger *slog.Logger, dev bool) (*gorm.DB, error) {
	logger.Info("connecting to database", "host", cfg.Host, "db", cfg.Name, "port", cfg.Port)
	level := gormlogger.Warn
	if dev {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: slogGorm.New(
			slogGorm.WithHandler(logger.Handler()),
			slogGorm.WithSlowThreshold(200*time.Millisecond),
		).LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Exec(enums).Error; err != nil {
		return nil, fmt.Errorf("create enums: %w", err)
	}
	return db, nil
}

func SyncDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Course{},
		&models.ProgressRecord{},
		&models.Article{},
		&models.Media{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func InitES(cfg config.Search) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Address},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	return client, nil
}

// InitMinio connects to object storage and creates the bucket when missing.
func InitMinio(ctx context.Context, cfg config.Minio) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return client, nil
}

func InitRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}
