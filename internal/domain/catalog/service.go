package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	analytes AnalyteRepository
	mappings MappingRepository
	matcher  *Matcher
}

func NewService(analytes AnalyteRepository, mappings MappingRepository, matcher *Matcher) *Service {
	return &Service{analytes: analytes, mappings: mappings, matcher: matcher}
}

// -- Analytes --

func (s *Service) CreateAnalyte(ctx context.Context, a *Analyte) error {
	a.Code = strings.TrimSpace(a.Code)
	if a.Code == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if existing, err := s.analytes.GetByCode(ctx, a.Code); err == nil && existing != nil {
		return fmt.Errorf("analyte code already exists: %s", a.Code)
	}
	if a.ReferenceRanges == nil {
		a.ReferenceRanges = map[string]RefRange{}
	}
	for cohort, rr := range a.ReferenceRanges {
		if rr.Min != nil && rr.Max != nil && *rr.Min > *rr.Max {
			return fmt.Errorf("reference range %q: min exceeds max", cohort)
		}
	}
	a.IsActive = true
	return s.analytes.Create(ctx, a)
}

func (s *Service) GetAnalyte(ctx context.Context, id uuid.UUID) (*Analyte, error) {
	return s.analytes.GetByID(ctx, id)
}

func (s *Service) GetAnalyteByCode(ctx context.Context, code string) (*Analyte, error) {
	return s.analytes.GetByCode(ctx, code)
}

func (s *Service) UpdateAnalyte(ctx context.Context, a *Analyte) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	for cohort, rr := range a.ReferenceRanges {
		if rr.Min != nil && rr.Max != nil && *rr.Min > *rr.Max {
			return fmt.Errorf("reference range %q: min exceeds max", cohort)
		}
	}
	return s.analytes.Update(ctx, a)
}

func (s *Service) DeactivateAnalyte(ctx context.Context, id uuid.UUID) error {
	return s.analytes.Deactivate(ctx, id)
}

func (s *Service) ListAnalytes(ctx context.Context, activeOnly bool, limit, offset int) ([]*Analyte, int, error) {
	return s.analytes.List(ctx, activeOnly, limit, offset)
}

func (s *Service) SearchAnalytes(ctx context.Context, query string, limit, offset int) ([]*Analyte, int, error) {
	if strings.TrimSpace(query) == "" {
		return s.analytes.List(ctx, false, limit, offset)
	}
	return s.analytes.Search(ctx, query, limit, offset)
}

// -- Mappings --

func (s *Service) UpsertMapping(ctx context.Context, m *AnalyteMapping) error {
	m.SourceLabel = strings.TrimSpace(m.SourceLabel)
	if m.SourceLabel == "" {
		return fmt.Errorf("source_label is required")
	}
	if m.AnalyteID == uuid.Nil {
		return fmt.Errorf("analyte_id is required")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if _, err := s.analytes.GetByID(ctx, m.AnalyteID); err != nil {
		return fmt.Errorf("analyte not found: %w", err)
	}
	return s.mappings.Upsert(ctx, m)
}

func (s *Service) GetMapping(ctx context.Context, id uuid.UUID) (*AnalyteMapping, error) {
	return s.mappings.GetByID(ctx, id)
}

func (s *Service) ListMappingsByAnalyte(ctx context.Context, analyteID uuid.UUID) ([]*AnalyteMapping, error) {
	return s.mappings.ListByAnalyte(ctx, analyteID)
}

// ValidateMapping marks a mapping as reviewed by a human.
func (s *Service) ValidateMapping(ctx context.Context, id uuid.UUID) error {
	return s.mappings.SetValidated(ctx, id, true)
}

func (s *Service) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	return s.mappings.Delete(ctx, id)
}

// MatchLabel returns candidate analytes for a raw source label.
func (s *Service) MatchLabel(ctx context.Context, sourceLabel string, labName *string) ([]Match, error) {
	if strings.TrimSpace(sourceLabel) == "" {
		return nil, fmt.Errorf("source_label is required")
	}
	return s.matcher.Match(ctx, sourceLabel, labName)
}
