package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

const (
	// AutoAcceptConfidence is the minimum confidence at which a match is
	// assigned to an observation without human review.
	AutoAcceptConfidence = 0.8
	// PartialConfidence is the fixed confidence assigned to fuzzy candidates.
	PartialConfidence = 0.7
	// SimilarityThreshold is the minimum similarity score for a fuzzy candidate.
	SimilarityThreshold = 0.3
	// MaxCandidates caps the number of fuzzy candidates returned per label.
	MaxCandidates = 5
)

const (
	MatchTypeExact   = "exact"
	MatchTypePartial = "partial"
)

// Match is one candidate analyte for a source label.
type Match struct {
	Analyte    *Analyte `json:"analyte"`
	Confidence float64  `json:"confidence"`
	MatchType  string   `json:"match_type"`
}

// Similarity scores how alike two labels are, in [0,1].
type Similarity func(a, b string) float64

// JaroWinkler returns the default similarity function.
func JaroWinkler() Similarity {
	m := metrics.NewJaroWinkler()
	return func(a, b string) float64 {
		return strutil.Similarity(a, b, m)
	}
}

// Matcher resolves raw source labels to catalog analytes. An exact pass over
// stored mappings runs first; when it finds nothing, active analytes are
// scored by substring containment and name similarity.
type Matcher struct {
	analytes AnalyteRepository
	mappings MappingRepository
	sim      Similarity
}

func NewMatcher(analytes AnalyteRepository, mappings MappingRepository, sim Similarity) *Matcher {
	if sim == nil {
		sim = JaroWinkler()
	}
	return &Matcher{analytes: analytes, mappings: mappings, sim: sim}
}

// Match returns candidate analytes for sourceLabel, best first. Every exact
// mapping hit becomes a candidate carrying the mapping's stored confidence;
// a label can legitimately map to several analytes across labs. Fuzzy
// candidates all carry PartialConfidence and are ordered by similarity.
func (m *Matcher) Match(ctx context.Context, sourceLabel string, labName *string) ([]Match, error) {
	label := strings.TrimSpace(sourceLabel)
	if label == "" {
		return nil, nil
	}

	mappings, err := m.mappings.FindBySourceLabel(ctx, label, labName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var exact []Match
	for _, mapping := range mappings {
		a, err := m.analytes.GetByID(ctx, mapping.AnalyteID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !a.IsActive {
			continue
		}
		exact = append(exact, Match{Analyte: a, Confidence: mapping.Confidence, MatchType: MatchTypeExact})
	}
	if len(exact) > 0 {
		return exact, nil
	}

	return m.fuzzy(ctx, label)
}

type scored struct {
	analyte *Analyte
	score   float64
}

func (m *Matcher) fuzzy(ctx context.Context, label string) ([]Match, error) {
	analytes, err := m.analytes.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(label)
	var candidates []scored
	for _, a := range analytes {
		name := strings.ToLower(a.Name)
		score := m.sim(name, lower)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			if score < 1 {
				score = 1
			}
		}
		if score > SimilarityThreshold {
			candidates = append(candidates, scored{analyte: a, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Match{
			Analyte:    c.analyte,
			Confidence: PartialConfidence,
			MatchType:  MatchTypePartial,
		})
	}
	return matches, nil
}
