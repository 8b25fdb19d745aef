// Package memory is an in-process avatar.Backend for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/sultanmr/aws-grocery/internal/avatar"
)

// Backend keeps objects in a map. Failure hooks let tests simulate an
// unreachable store.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]avatar.Object
	prefix  string

	// PutErr, GetErr and DeleteErr, when set, are returned by every call.
	PutErr    error
	GetErr    error
	DeleteErr error
}

// New returns an empty backend whose references are prefix+filename.
func New(prefix string) *Backend {
	return &Backend{objects: make(map[string]avatar.Object), prefix: prefix}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Ref(filename string) string { return b.prefix + filename }

func (b *Backend) Put(_ context.Context, ref string, data []byte, contentType string) error {
	if b.PutErr != nil {
		return b.PutErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[ref] = avatar.Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (b *Backend) Get(_ context.Context, ref string) (*avatar.Object, error) {
	if b.GetErr != nil {
		return nil, b.GetErr
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[ref]
	if !ok {
		return nil, avatar.ErrObjectNotFound
	}
	return &obj, nil
}

func (b *Backend) Delete(_ context.Context, ref string) error {
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[ref]; !ok {
		return avatar.ErrObjectNotFound
	}
	delete(b.objects, ref)
	return nil
}

// Has reports whether ref is stored.
func (b *Backend) Has(ref string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[ref]
	return ok
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
