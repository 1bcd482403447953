package normalize

import (
	"context"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tahkootay/LabTrack/internal/domain/catalog"
	"github.com/tahkootay/LabTrack/internal/domain/result"
)

type stubAnalyteRepo struct {
	items map[uuid.UUID]*catalog.Analyte
}

func newStubAnalyteRepo() *stubAnalyteRepo {
	return &stubAnalyteRepo{items: make(map[uuid.UUID]*catalog.Analyte)}
}

func (s *stubAnalyteRepo) Create(_ context.Context, a *catalog.Analyte) error {
	a.ID = uuid.New()
	s.items[a.ID] = a
	return nil
}

func (s *stubAnalyteRepo) GetByID(_ context.Context, id uuid.UUID) (*catalog.Analyte, error) {
	if a, ok := s.items[id]; ok {
		return a, nil
	}
	return nil, catalog.ErrNotFound
}

func (s *stubAnalyteRepo) GetByCode(_ context.Context, code string) (*catalog.Analyte, error) {
	for _, a := range s.items {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *stubAnalyteRepo) Update(_ context.Context, a *catalog.Analyte) error {
	s.items[a.ID] = a
	return nil
}

func (s *stubAnalyteRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	a, ok := s.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	a.IsActive = false
	return nil
}

func (s *stubAnalyteRepo) List(_ context.Context, _ bool, _, _ int) ([]*catalog.Analyte, int, error) {
	return nil, 0, nil
}

func (s *stubAnalyteRepo) Search(_ context.Context, _ string, _, _ int) ([]*catalog.Analyte, int, error) {
	return nil, 0, nil
}

func (s *stubAnalyteRepo) ListActive(_ context.Context) ([]*catalog.Analyte, error) {
	var out []*catalog.Analyte
	for _, a := range s.items {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubMappingRepo struct {
	items map[uuid.UUID]*catalog.AnalyteMapping
}

func newStubMappingRepo() *stubMappingRepo {
	return &stubMappingRepo{items: make(map[uuid.UUID]*catalog.AnalyteMapping)}
}

func (s *stubMappingRepo) Upsert(_ context.Context, m *catalog.AnalyteMapping) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.items[m.ID] = m
	return nil
}

func (s *stubMappingRepo) GetByID(_ context.Context, id uuid.UUID) (*catalog.AnalyteMapping, error) {
	if m, ok := s.items[id]; ok {
		return m, nil
	}
	return nil, catalog.ErrNotFound
}

func (s *stubMappingRepo) FindBySourceLabel(_ context.Context, sourceLabel string, labName *string) ([]*catalog.AnalyteMapping, error) {
	var items []*catalog.AnalyteMapping
	for _, m := range s.items {
		if !strings.EqualFold(m.SourceLabel, sourceLabel) {
			continue
		}
		if labName != nil && m.LabName != nil && !strings.EqualFold(*m.LabName, *labName) {
			continue
		}
		items = append(items, m)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if labName != nil && (items[i].LabName != nil) != (items[j].LabName != nil) {
			return items[i].LabName != nil
		}
		return items[i].Confidence > items[j].Confidence
	})
	return items, nil
}

func (s *stubMappingRepo) ListByAnalyte(_ context.Context, _ uuid.UUID) ([]*catalog.AnalyteMapping, error) {
	return nil, nil
}

func (s *stubMappingRepo) SetValidated(_ context.Context, id uuid.UUID, validated bool) error {
	m, ok := s.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	m.IsValidated = validated
	return nil
}

func (s *stubMappingRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.items, id)
	return nil
}

type stubPrevious struct {
	obs *result.Observation
	err error
}

func (s *stubPrevious) FindPrevious(_ context.Context, _, _, _ uuid.UUID, _ time.Time) (*result.Observation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.obs, nil
}

func sptr(v string) *string { return &v }

func newTestNormalizer(t *testing.T, prev *stubPrevious) (*Normalizer, *catalog.Analyte) {
	t.Helper()
	analytes := newStubAnalyteRepo()
	mappings := newStubMappingRepo()

	glucose := &catalog.Analyte{
		Code:        "glucose",
		Name:        "Глюкоза",
		DefaultUnit: sptr("mmol/l"),
		ReferenceRanges: map[string]catalog.RefRange{
			"normal": {Min: fptr(3.9), Max: fptr(5.5)},
		},
		IsActive: true,
	}
	if err := analytes.Create(context.Background(), glucose); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mappings.Upsert(context.Background(), &catalog.AnalyteMapping{
		SourceLabel: "Глюкоза",
		AnalyteID:   glucose.ID,
		Confidence:  0.95,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prev == nil {
		prev = &stubPrevious{err: result.ErrNotFound}
	}
	matcher := catalog.NewMatcher(analytes, mappings, nil)
	return NewNormalizer(matcher, prev, zerolog.Nop()), glucose
}

func TestNormalize_MappedNumericResult(t *testing.T) {
	n, glucose := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		DocumentID:  uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза",
		RawValue:    "5,6",
		RawUnit:     sptr("ммоль/л"),
		RawRefRange: sptr("3.9 - 5.5"),
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.Status != result.StatusNormalized {
		t.Fatalf("status = %q, want normalized", obs.Status)
	}
	if !obs.IsNumeric || obs.Value == nil || *obs.Value != 5.6 {
		t.Fatalf("value = %v, want 5.6", obs.Value)
	}
	if obs.AnalyteID == nil || *obs.AnalyteID != glucose.ID {
		t.Errorf("analyte_id = %v, want %v", obs.AnalyteID, glucose.ID)
	}
	if obs.MatchConfidence == nil || *obs.MatchConfidence != 0.95 {
		t.Errorf("match_confidence = %v, want 0.95", obs.MatchConfidence)
	}
	if obs.MatchType == nil || *obs.MatchType != catalog.MatchTypeExact {
		t.Errorf("match_type = %v, want exact", obs.MatchType)
	}
	if obs.Unit == nil || *obs.Unit != "mmol/l" {
		t.Errorf("unit = %v, want canonical mmol/l", obs.Unit)
	}
	if obs.Flag == nil || *obs.Flag != FlagHigh {
		t.Errorf("flag = %v, want H", obs.Flag)
	}
	if obs.OutOfRange == nil || !*obs.OutOfRange {
		t.Error("expected out_of_range")
	}
	if obs.Suspect == nil || *obs.Suspect {
		t.Error("expected not suspect")
	}
	if matched, _ := obs.ProcessingNotes["analyte_matched"].(bool); !matched {
		t.Error("expected analyte_matched note")
	}
}

func TestNormalize_ConvertsUnits(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "глюкоза",
		RawValue:    "100",
		RawUnit:     sptr("mg/dl"),
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.Value == nil || math.Abs(*obs.Value-5.55) > 1e-6 {
		t.Fatalf("value = %v, want 5.55", obs.Value)
	}
	if obs.Unit == nil || *obs.Unit != "mmol/l" {
		t.Errorf("unit = %v, want mmol/l", obs.Unit)
	}
	if converted, _ := obs.ProcessingNotes["unit_converted"].(bool); !converted {
		t.Error("expected unit_converted note")
	}
	// No explicit range on the report, so the catalog default applies.
	if obs.RefMin == nil || *obs.RefMin != 3.9 || obs.RefMax == nil || *obs.RefMax != 5.5 {
		t.Errorf("range = (%v, %v), want (3.9, 5.5)", obs.RefMin, obs.RefMax)
	}
	if obs.Flag == nil || *obs.Flag != FlagHigh {
		t.Errorf("flag = %v, want H", obs.Flag)
	}
}

func TestNormalize_QualitativeResult(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза",
		RawValue:    "отрицательно",
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.Status != result.StatusNormalized {
		t.Fatalf("status = %q, want normalized", obs.Status)
	}
	if obs.IsNumeric || obs.Value != nil {
		t.Errorf("expected non-numeric result, got value %v", obs.Value)
	}
	if obs.Flag != nil {
		t.Errorf("flag = %v, want nil for qualitative result", *obs.Flag)
	}
	// No verdict at all for qualitative results, not an explicit false.
	if obs.OutOfRange != nil {
		t.Errorf("out_of_range = %v, want nil", *obs.OutOfRange)
	}
	if obs.Suspect != nil {
		t.Errorf("suspect = %v, want nil", *obs.Suspect)
	}
	if obs.Delta != nil {
		t.Error("expected no delta for qualitative result")
	}
}

func TestNormalize_NumericWithoutRangeFlagsNormal(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза крови", // below auto-accept, so no default range either
		RawValue:    "5,6",
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.RefMin != nil || obs.RefMax != nil {
		t.Fatalf("range = (%v, %v), want none", obs.RefMin, obs.RefMax)
	}
	if obs.Flag == nil || *obs.Flag != FlagNormal {
		t.Errorf("flag = %v, want N", obs.Flag)
	}
	if obs.OutOfRange == nil || *obs.OutOfRange {
		t.Error("expected out_of_range false")
	}
	if obs.Suspect == nil || *obs.Suspect {
		t.Error("expected suspect false")
	}
}

func TestNormalize_Delta(t *testing.T) {
	prevValue := 4.0
	prev := &stubPrevious{obs: &result.Observation{Value: &prevValue}}
	n, _ := newTestNormalizer(t, prev)

	obs := &result.Observation{
		ID:          uuid.New(),
		DocumentID:  uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза",
		RawValue:    "5,6",
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.Delta == nil || math.Abs(*obs.Delta-1.6) > 1e-9 {
		t.Fatalf("delta = %v, want 1.6", obs.Delta)
	}
	if obs.DeltaPercent == nil || math.Abs(*obs.DeltaPercent-40) > 1e-6 {
		t.Errorf("delta_percent = %v, want 40", obs.DeltaPercent)
	}
}

func TestNormalize_UnmatchedLabelKeepsCandidates(t *testing.T) {
	n, _ := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза крови", // fuzzy only, below auto-accept
		RawValue:    "5,6",
	}
	if err := n.Normalize(context.Background(), obs, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obs.AnalyteID != nil {
		t.Error("expected no analyte assignment below auto-accept confidence")
	}
	if matched, _ := obs.ProcessingNotes["analyte_matched"].(bool); matched {
		t.Error("expected analyte_matched to be false")
	}
	if _, ok := obs.ProcessingNotes["candidates"]; !ok {
		t.Error("expected candidates note")
	}
	// Parsing still runs without a matched analyte.
	if obs.Value == nil || *obs.Value != 5.6 {
		t.Errorf("value = %v, want 5.6", obs.Value)
	}
}

func TestNormalize_RerunConverges(t *testing.T) {
	n, glucose := newTestNormalizer(t, nil)

	obs := &result.Observation{
		ID:          uuid.New(),
		SubjectID:   uuid.New(),
		SourceLabel: "Глюкоза",
		RawValue:    "100",
		RawUnit:     sptr("mg/dl"),
	}
	for i := 0; i < 2; i++ {
		if err := n.Normalize(context.Background(), obs, nil); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	// A second run must not convert the already converted value again.
	if obs.Value == nil || math.Abs(*obs.Value-5.55) > 1e-6 {
		t.Fatalf("value = %v, want 5.55 after rerun", obs.Value)
	}
	if obs.AnalyteID == nil || *obs.AnalyteID != glucose.ID {
		t.Errorf("analyte_id = %v, want %v", obs.AnalyteID, glucose.ID)
	}
}
