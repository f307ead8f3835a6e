// Package blob stores binary objects (avatars) behind a small interface.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// Store puts and deletes objects addressed by container and key.
// Put returns a backend reference for the stored object.
type Store interface {
	Put(ctx context.Context, container, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, container, key string) error
}

func objectKey(container, key string) string {
	if container == "" {
		return key
	}
	return container + "/" + key
}
