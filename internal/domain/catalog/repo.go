package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested analyte or mapping does not exist.
var ErrNotFound = errors.New("not found")

type AnalyteRepository interface {
	Create(ctx context.Context, a *Analyte) error
	GetByID(ctx context.Context, id uuid.UUID) (*Analyte, error)
	GetByCode(ctx context.Context, code string) (*Analyte, error)
	Update(ctx context.Context, a *Analyte) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Analyte, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Analyte, int, error)
	// ListActive returns every active analyte without paging; used by the
	// label matcher, which scores candidates in memory.
	ListActive(ctx context.Context) ([]*Analyte, error)
}

type MappingRepository interface {
	// Upsert inserts the mapping or, when one already exists for
	// (source_label, analyte_id, lab_name), refreshes its confidence and
	// validation state.
	Upsert(ctx context.Context, m *AnalyteMapping) error
	GetByID(ctx context.Context, id uuid.UUID) (*AnalyteMapping, error)
	// FindBySourceLabel returns every mapping for a label, matched
	// case-insensitively, best first. When labName is set, lab-scoped
	// mappings rank above global ones.
	FindBySourceLabel(ctx context.Context, sourceLabel string, labName *string) ([]*AnalyteMapping, error)
	ListByAnalyte(ctx context.Context, analyteID uuid.UUID) ([]*AnalyteMapping, error)
	SetValidated(ctx context.Context, id uuid.UUID, validated bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
