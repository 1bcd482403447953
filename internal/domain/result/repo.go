package result

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested observation does not exist.
var ErrNotFound = errors.New("observation not found")

// Filters narrows observation searches. Nil/zero fields are ignored.
type Filters struct {
	SubjectID   *uuid.UUID
	DocumentID  *uuid.UUID
	AnalyteCode string
	From        *time.Time
	To          *time.Time
	OutOfRange  *bool
	Suspect     *bool
	Status      string
}

type Repository interface {
	Create(ctx context.Context, o *Observation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Observation, error)
	// UpdateDerived persists only the derived fields; raw fields stay as
	// written at ingest.
	UpdateDerived(ctx context.Context, o *Observation) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Observation, error)
	Search(ctx context.Context, f Filters, limit, offset int) ([]*Observation, int, error)
	// HistoryByAnalyte returns a subject's normalized numeric observations
	// for one analyte code, oldest first.
	HistoryByAnalyte(ctx context.Context, subjectID uuid.UUID, analyteCode string) ([]*Observation, error)
	// HistoryByLabel is the unmatched-label fallback: raw history for a
	// source label regardless of analyte assignment.
	HistoryByLabel(ctx context.Context, subjectID uuid.UUID, sourceLabel string) ([]*Observation, error)
	// FindPrevious returns the most recent normalized numeric observation
	// of the same analyte for the subject, excluding the given document.
	FindPrevious(ctx context.Context, subjectID, analyteID, excludeDocumentID uuid.UUID, before time.Time) (*Observation, error)
	Summary(ctx context.Context, subjectID uuid.UUID) ([]*AnalyteSummary, error)
}
