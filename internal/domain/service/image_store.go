package service

import (
	"context"
)

// ImageStore persists uploaded profile images.
type ImageStore interface {
	// Put stores data under key and returns the public URL of the object.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}
