package main

import (
	"context"
	"fmt"
	"log/slog"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/config"
	"github.com/broodroosterdev/potatosync-files/filesystem"
	"github.com/broodroosterdev/potatosync-files/objectstore"
)

// openBackend builds the configured storage backend. The returned close
// function releases its resources and is never nil.
func openBackend(ctx context.Context, cfg *config.Config) (potatosync.Backend, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		store, err := objectstore.New(ctx, cfg.ObjectStoreConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("connect object store: %w", err)
		}
		slog.Info("using s3 storage",
			"host", cfg.Storage.S3.Host,
			"bucket", cfg.Storage.S3.Bucket,
			"presign_uploads", cfg.Storage.S3.PresignUploads,
		)
		return store.Backend(), func() {}, nil

	default:
		store, err := filesystem.Open(cfg.Storage.Local.Path, cfg.Storage.Local.MaxConcurrency)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage: %w", err)
		}
		slog.Info("using local storage", "path", cfg.Storage.Local.Path)
		return store, func() { _ = store.Close() }, nil
	}
}

// subjectPrincipal builds a principal for administrative commands that act
// on a user's namespace without a token.
func subjectPrincipal(subject string) (potatosync.Principal, error) {
	p, err := potatosync.NewPrincipal(subject, nil, nil)
	if err != nil {
		return potatosync.Principal{}, fmt.Errorf("invalid subject %q: %w", subject, err)
	}
	return p, nil
}
