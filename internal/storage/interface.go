package storage

import (
	"context"
	"fmt"
	"io"

	"student-result-system/internal/config"
)

// Storage holds uploaded files between receipt and parsing.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

func New(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Driver {
	case "local", "":
		return NewLocalStorage(cfg.Storage.Local.Dir)
	case "s3":
		return NewS3Storage(cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
