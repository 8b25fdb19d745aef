// Package avatar stores profile images behind a uniform interface over a
// remote object store or a local directory, with unique naming and a
// fallback chain on read.
package avatar

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by a Backend when the reference resolves to
// no object. Any other Get error is treated as transient.
var ErrObjectNotFound = errors.New("avatar object not found")

// Object is a stored image and its MIME type.
type Object struct {
	Data        []byte
	ContentType string
}

// Backend is one physical avatar store.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Ref maps a generated filename to the reference stored on the user.
	Ref(filename string) string
	Put(ctx context.Context, ref string, data []byte, contentType string) error
	Get(ctx context.Context, ref string) (*Object, error)
	Delete(ctx context.Context, ref string) error
}
