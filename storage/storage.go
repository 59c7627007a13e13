package storage

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object is a stored asset together with its content type.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
}

// Storage is the object store holding originals and derived assets.
// Keys are given percent-encoded, as they appear in request URIs.
type Storage interface {
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, contentType string, body []byte) error
}
