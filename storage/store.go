package storage

import (
	"context"
	"io"
)

type PutResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore persists result snapshots.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) (*PutResult, error)

	Delete(ctx context.Context, key string) error

	PublicURL(key string) string
}
