package result

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	items map[uuid.UUID]*Observation
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Observation)}
}

func (m *mockRepo) Create(_ context.Context, o *Observation) error {
	o.ID = uuid.New()
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	m.items[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Observation, error) {
	if o, ok := m.items[id]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) UpdateDerived(_ context.Context, o *Observation) error {
	if _, ok := m.items[o.ID]; !ok {
		return ErrNotFound
	}
	m.items[o.ID] = o
	return nil
}

func (m *mockRepo) DeleteByDocument(_ context.Context, documentID uuid.UUID) (int64, error) {
	var n int64
	for id, o := range m.items {
		if o.DocumentID == documentID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) ListByDocument(_ context.Context, documentID uuid.UUID) ([]*Observation, error) {
	var out []*Observation
	for _, o := range m.items {
		if o.DocumentID == documentID {
			out = append(out, o)
		}
	}
	m.sortByCreated(out)
	return out, nil
}

func (m *mockRepo) Search(_ context.Context, f Filters, limit, offset int) ([]*Observation, int, error) {
	var out []*Observation
	for _, o := range m.items {
		if f.SubjectID != nil && o.SubjectID != *f.SubjectID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.OutOfRange != nil && (o.OutOfRange == nil || *o.OutOfRange != *f.OutOfRange) {
			continue
		}
		out = append(out, o)
	}
	m.sortByCreated(out)
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) HistoryByAnalyte(_ context.Context, subjectID uuid.UUID, _ string) ([]*Observation, error) {
	var out []*Observation
	for _, o := range m.items {
		if o.SubjectID == subjectID && o.IsNumeric && o.Status == StatusNormalized {
			out = append(out, o)
		}
	}
	m.sortByCreated(out)
	return out, nil
}

func (m *mockRepo) HistoryByLabel(_ context.Context, subjectID uuid.UUID, sourceLabel string) ([]*Observation, error) {
	var out []*Observation
	for _, o := range m.items {
		if o.SubjectID == subjectID && strings.EqualFold(o.SourceLabel, sourceLabel) {
			out = append(out, o)
		}
	}
	m.sortByCreated(out)
	return out, nil
}

func (m *mockRepo) FindPrevious(_ context.Context, subjectID, analyteID, excludeDocumentID uuid.UUID, before time.Time) (*Observation, error) {
	var best *Observation
	for _, o := range m.items {
		if o.SubjectID != subjectID || o.AnalyteID == nil || *o.AnalyteID != analyteID {
			continue
		}
		if o.DocumentID == excludeDocumentID || !o.IsNumeric || o.Status != StatusNormalized {
			continue
		}
		if !o.CreatedAt.Before(before) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *mockRepo) Summary(_ context.Context, _ uuid.UUID) ([]*AnalyteSummary, error) {
	return nil, nil
}

func (m *mockRepo) sortByCreated(out []*Observation) {
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
}

func seedObservation(t *testing.T, repo *mockRepo, o *Observation) *Observation {
	t.Helper()
	if err := repo.Create(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func TestSearchObservations_InvertedDateRange(t *testing.T) {
	svc := NewService(newMockRepo())
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, -1, 0)
	_, _, err := svc.SearchObservations(context.Background(), Filters{From: &from, To: &to}, 20, 0)
	if err == nil {
		t.Fatal("expected error for inverted date range")
	}
}

func TestSearchObservations_FiltersBySubject(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	subject := uuid.New()
	other := uuid.New()
	seedObservation(t, repo, &Observation{SubjectID: subject, SourceLabel: "Глюкоза", RawValue: "5,6"})
	seedObservation(t, repo, &Observation{SubjectID: other, SourceLabel: "Глюкоза", RawValue: "4,1"})

	items, total, err := svc.SearchObservations(context.Background(), Filters{SubjectID: &subject}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("got %d items (total %d), want 1", len(items), total)
	}
	if items[0].SubjectID != subject {
		t.Errorf("subject = %v, want %v", items[0].SubjectID, subject)
	}
}

func TestHistory_RequiresCode(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.History(context.Background(), uuid.New(), "  "); err == nil {
		t.Fatal("expected error for empty analyte code")
	}
}

func TestHistoryByLabel_RequiresLabel(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.HistoryByLabel(context.Background(), uuid.New(), ""); err == nil {
		t.Fatal("expected error for empty label")
	}
}

func TestHistoryByLabel_CaseInsensitive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	subject := uuid.New()
	seedObservation(t, repo, &Observation{SubjectID: subject, SourceLabel: "Глюкоза", RawValue: "5,6"})

	items, err := svc.HistoryByLabel(context.Background(), subject, "глюкоза")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestResetDerived(t *testing.T) {
	analyteID := uuid.New()
	v := 5.6
	flag := "H"
	o := &Observation{
		AnalyteID: &analyteID,
		Value:     &v,
		IsNumeric: true,
		Flag:      &flag,
		Status:    StatusNormalized,
		ProcessingNotes: map[string]interface{}{
			"analyte_matched": true,
		},
	}
	o.ResetDerived()

	if o.AnalyteID != nil || o.Value != nil || o.Flag != nil {
		t.Error("expected derived fields to be cleared")
	}
	if o.IsNumeric {
		t.Error("expected is_numeric to be cleared")
	}
	if o.Status != StatusPending {
		t.Errorf("status = %q, want pending", o.Status)
	}
	if o.ProcessingNotes != nil {
		t.Error("expected processing notes to be cleared")
	}
}
