package normalize

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tahkootay/LabTrack/internal/domain/catalog"
	"github.com/tahkootay/LabTrack/internal/domain/result"
)

// PreviousFinder locates the prior observation used for delta computation.
// result.Repository satisfies it.
type PreviousFinder interface {
	FindPrevious(ctx context.Context, subjectID, analyteID, excludeDocumentID uuid.UUID, before time.Time) (*result.Observation, error)
}

// Normalizer runs the full derivation pipeline over a single observation:
// analyte matching, numeric parsing, unit conversion, reference range
// resolution, flagging and delta against the prior value.
type Normalizer struct {
	matcher  *catalog.Matcher
	previous PreviousFinder
	log      zerolog.Logger
}

func NewNormalizer(matcher *catalog.Matcher, previous PreviousFinder, log zerolog.Logger) *Normalizer {
	return &Normalizer{matcher: matcher, previous: previous, log: log}
}

// Normalize recomputes every derived field of obs in place. Raw fields are
// never touched, so a rerun over the same observation converges to the same
// state. labName scopes analyte matching to the issuing laboratory when
// known. On failure the observation is marked failed with the error recorded
// in its processing notes; the caller persists either way.
func (n *Normalizer) Normalize(ctx context.Context, obs *result.Observation, labName *string) error {
	obs.ResetDerived()
	notes := map[string]interface{}{
		"analyte_matched": false,
		"unit_converted":  false,
	}
	obs.ProcessingNotes = notes

	analyte, err := n.match(ctx, obs, notes, labName)
	if err != nil {
		obs.Status = result.StatusFailed
		notes["error"] = err.Error()
		n.log.Error().Err(err).Str("observation_id", obs.ID.String()).Msg("analyte matching failed")
		return err
	}

	if v, ok := ParseValue(obs.RawValue); ok {
		obs.IsNumeric = true
		obs.Value = &v
	}
	if obs.RawUnit != nil {
		analyteCode, targetUnit := "", ""
		if analyte != nil {
			analyteCode = analyte.Code
			if obs.IsNumeric && analyte.DefaultUnit != nil {
				targetUnit = *analyte.DefaultUnit
			}
		}
		var v float64
		if obs.Value != nil {
			v = *obs.Value
		}
		converted, unit, ok := ConvertUnit(analyteCode, *obs.RawUnit, targetUnit, v)
		obs.Unit = &unit
		if ok {
			obs.Value = &converted
			notes["unit_converted"] = true
		}
	}

	n.resolveRange(obs, analyte)

	if obs.IsNumeric {
		flag, outOfRange := Flag(*obs.Value, obs.RefMin, obs.RefMax)
		suspect := Suspect(*obs.Value, obs.RefMin, obs.RefMax)
		obs.Flag = &flag
		obs.OutOfRange = &outOfRange
		obs.Suspect = &suspect
	}

	if obs.IsNumeric && analyte != nil {
		n.computeDelta(ctx, obs)
	}

	obs.Status = result.StatusNormalized
	return nil
}

func (n *Normalizer) match(ctx context.Context, obs *result.Observation, notes map[string]interface{}, labName *string) (*catalog.Analyte, error) {
	matches, err := n.matcher.Match(ctx, obs.SourceLabel, labName)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	best := matches[0]
	if best.Confidence < catalog.AutoAcceptConfidence {
		// Candidates exist but none is trustworthy enough to assign
		// without review.
		notes["candidates"] = len(matches)
		return nil, nil
	}

	obs.AnalyteID = &best.Analyte.ID
	obs.MatchConfidence = &best.Confidence
	matchType := best.MatchType
	obs.MatchType = &matchType
	notes["analyte_matched"] = true
	return best.Analyte, nil
}

func (n *Normalizer) resolveRange(obs *result.Observation, analyte *catalog.Analyte) {
	if obs.RawRefRange != nil {
		obs.RefMin, obs.RefMax = ParseRange(*obs.RawRefRange)
	}
	if obs.RefMin == nil && obs.RefMax == nil && analyte != nil {
		obs.RefMin, obs.RefMax = DefaultRange(analyte)
	}
}

func (n *Normalizer) computeDelta(ctx context.Context, obs *result.Observation) {
	before := obs.CreatedAt
	if before.IsZero() {
		before = time.Now()
	}
	prev, err := n.previous.FindPrevious(ctx, obs.SubjectID, *obs.AnalyteID, obs.DocumentID, before)
	if err != nil {
		if !errors.Is(err, result.ErrNotFound) {
			// A missing delta never fails the run.
			n.log.Warn().Err(err).Str("observation_id", obs.ID.String()).Msg("previous value lookup failed")
		}
		return
	}
	if prev.Value == nil {
		return
	}
	delta, pct := Delta(*obs.Value, *prev.Value)
	obs.Delta = &delta
	obs.DeltaPercent = pct
}
