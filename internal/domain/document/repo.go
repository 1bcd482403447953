package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// List returns a subject's documents newest first, optionally filtered
	// by status, with the observation count attached to each row.
	List(ctx context.Context, subjectID uuid.UUID, status string, limit, offset int) ([]*Document, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	// MarkCompleted stores the extracted report metadata and stamps the
	// processing time.
	MarkCompleted(ctx context.Context, d *Document) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// Reset returns a document to the pending state, clearing prior
	// processing outcome before a rerun.
	Reset(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
