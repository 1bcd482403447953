package result

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetObservation(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SearchObservations(ctx context.Context, f Filters, limit, offset int) ([]*Observation, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, fmt.Errorf("date range is inverted")
	}
	return s.repo.Search(ctx, f, limit, offset)
}

func (s *Service) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Observation, error) {
	return s.repo.ListByDocument(ctx, documentID)
}

// History returns the normalized time series for one analyte code.
func (s *Service) History(ctx context.Context, subjectID uuid.UUID, analyteCode string) ([]*Observation, error) {
	if strings.TrimSpace(analyteCode) == "" {
		return nil, fmt.Errorf("analyte code is required")
	}
	return s.repo.HistoryByAnalyte(ctx, subjectID, analyteCode)
}

// HistoryByLabel returns the raw series for a source label. It covers
// observations that never matched an analyte.
func (s *Service) HistoryByLabel(ctx context.Context, subjectID uuid.UUID, sourceLabel string) ([]*Observation, error) {
	if strings.TrimSpace(sourceLabel) == "" {
		return nil, fmt.Errorf("source label is required")
	}
	return s.repo.HistoryByLabel(ctx, subjectID, sourceLabel)
}

func (s *Service) Summary(ctx context.Context, subjectID uuid.UUID) ([]*AnalyteSummary, error) {
	return s.repo.Summary(ctx, subjectID)
}
