// Package proofstore holds payment-proof files. The booking core only ever
// sees the opaque reference a Store hands back.
package proofstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

type Store interface {
	// Store uploads the file and returns its opaque reference.
	Store(ctx context.Context, file io.Reader, filename string) (string, error)
	// Delete releases the file behind a reference.
	Delete(ctx context.Context, ref string) error
}

// NoopStore is the dev/test store: it hands out references without keeping
// anything.
type NoopStore struct{}

func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) Store(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "noop/" + uuid.NewString(), nil
}

func (s *NoopStore) Delete(_ context.Context, _ string) error {
	return nil
}
