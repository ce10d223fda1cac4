package model

import (
	"context"

	"github.com/google/uuid"
)

// CaptureStore is the read side of persisted captures, used by the query surfaces.
type CaptureStore interface {
	// List returns every known capture, newest first.
	List(ctx context.Context) ([]*Capture, error)

	// Get returns one capture or an error wrapping ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Capture, error)
}
