package core

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON-serializable values.
type Cache interface {
	// Get loads the value stored at key into dest; returns ErrCacheMiss if there is none.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// FileStorage persists uploaded files and returns their public URL.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (url string, err error)
}
