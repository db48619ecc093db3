package ports

import (
	"context"
	"io"
)

// Port: where the shelter directory document comes from.
type DocumentSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Describe returns the location for logs (URL or path).
	Describe() string
}
