package archive

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read when no object exists at the path
var ErrNotFound = errors.New("archive: object not found")

// Storage is the cold store for price files and barometer snapshots.
// Paths are slash separated and relative to the backend root.
type Storage interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns the paths under prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Backend names
const (
	BackendLocalFS = "localfs"
	BackendS3      = "s3"
)

// Config selects and configures a backend
type Config struct {
	Type    string
	BaseDir string
	S3      S3Config
}

// New opens the configured backend
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", BackendLocalFS:
		return NewLocalFS(cfg.BaseDir)
	case BackendS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Type)
	}
}
