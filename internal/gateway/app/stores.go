package app

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"pymentor/internal/gateway/config"
	artifactrepo "pymentor/internal/gateway/repository/artifact"
	snapshotrepo "pymentor/internal/gateway/repository/snapshot"
)

type appStores struct {
	db        *sql.DB
	snapshots snapshotrepo.Store
	artifacts artifactrepo.Store
}

func initStores(cfg *config.Config, logger *zap.Logger) (*appStores, error) {
	stores := &appStores{}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		stores.db = db
		stores.snapshots = snapshotrepo.NewPostgresStore(db)
		logger.Info("snapshot store: postgres")
	} else {
		stores.snapshots = snapshotrepo.NewMemoryStore()
		logger.Info("snapshot store: in-memory")
	}

	artifacts, err := chooseArtifactStore(cfg, stores.db)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	stores.artifacts = artifacts
	logger.Info("artifact store",
		zap.String("backend", cfg.Artifact.Backend),
		zap.String("bucket", cfg.Artifact.Bucket),
		zap.String("endpoint", cfg.Artifact.Endpoint),
	)
	return stores, nil
}

func chooseArtifactStore(cfg *config.Config, db *sql.DB) (artifactrepo.Store, error) {
	switch cfg.Artifact.Backend {
	case "s3":
		s3Store, err := artifactrepo.NewS3Store(artifactrepo.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
			URLExpiry: cfg.Artifact.URLExpiry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		return artifactrepo.NewCachedStore(s3Store, artifactrepo.DefaultCacheConfig()), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("artifact postgres store needs DATABASE_URL")
		}
		return artifactrepo.NewCachedStore(artifactrepo.NewPostgresStore(db), artifactrepo.DefaultCacheConfig()), nil
	default:
		return artifactrepo.NewMemoryStore(), nil
	}
}

func (s *appStores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
