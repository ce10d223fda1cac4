package model

import "context"

// Writer defines a generic interface for persisting finished captures.
type Writer interface {
	// Write persists one capture. The capture must not be modified afterwards.
	Write(ctx context.Context, capture *Capture) error

	// Name returns the writer type, used in log lines.
	Name() string
}
