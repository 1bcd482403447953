package result

import (
	"time"

	"github.com/google/uuid"
)

// Normalization statuses for an observation.
const (
	StatusPending    = "pending"
	StatusNormalized = "normalized"
	StatusFailed     = "failed"
)

// Observation maps to the observation table: one analyte row extracted from
// a lab report. Raw fields are written once at ingest and never touched
// again; derived fields are recomputed in full on every normalization run.
type Observation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	DocumentID uuid.UUID  `db:"document_id" json:"document_id"`
	SubjectID  uuid.UUID  `db:"subject_id" json:"subject_id"`
	AnalyteID  *uuid.UUID `db:"analyte_id" json:"analyte_id,omitempty"`

	// Raw extraction fields.
	SourceLabel string  `db:"source_label" json:"source_label"`
	RawValue    string  `db:"raw_value" json:"raw_value"`
	RawUnit     *string `db:"raw_unit" json:"raw_unit,omitempty"`
	RawRefRange *string `db:"raw_reference_range" json:"raw_reference_range,omitempty"`
	RawFlag     *string `db:"raw_flag" json:"raw_flag,omitempty"`
	Comments    *string `db:"comments" json:"comments,omitempty"`

	// Derived fields.
	Value           *float64               `db:"value" json:"value,omitempty"`
	Unit            *string                `db:"unit" json:"unit,omitempty"`
	IsNumeric       bool                   `db:"is_numeric" json:"is_numeric"`
	RefMin          *float64               `db:"ref_min" json:"ref_min,omitempty"`
	RefMax          *float64               `db:"ref_max" json:"ref_max,omitempty"`
	Flag            *string                `db:"flag" json:"flag,omitempty"`
	OutOfRange      *bool                  `db:"out_of_range" json:"out_of_range,omitempty"`
	Suspect         *bool                  `db:"suspect" json:"suspect,omitempty"`
	Delta           *float64               `db:"delta" json:"delta,omitempty"`
	DeltaPercent    *float64               `db:"delta_percent" json:"delta_percent,omitempty"`
	MatchConfidence *float64               `db:"match_confidence" json:"match_confidence,omitempty"`
	MatchType       *string                `db:"match_type" json:"match_type,omitempty"`
	Status          string                 `db:"normalization_status" json:"normalization_status"`
	ProcessingNotes map[string]interface{} `db:"processing_notes" json:"processing_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ResetDerived clears every derived field so a renormalization run starts
// from a clean slate.
func (o *Observation) ResetDerived() {
	o.AnalyteID = nil
	o.Value = nil
	o.Unit = nil
	o.IsNumeric = false
	o.RefMin = nil
	o.RefMax = nil
	o.Flag = nil
	o.OutOfRange = nil
	o.Suspect = nil
	o.Delta = nil
	o.DeltaPercent = nil
	o.MatchConfidence = nil
	o.MatchType = nil
	o.Status = StatusPending
	o.ProcessingNotes = nil
}

// AnalyteSummary is one row of the per-subject overview: the latest value
// for an analyte plus counts across its whole history.
type AnalyteSummary struct {
	AnalyteID   uuid.UUID  `db:"analyte_id" json:"analyte_id"`
	Code        string     `db:"code" json:"code"`
	Name        string     `db:"name" json:"name"`
	LatestValue *float64   `db:"latest_value" json:"latest_value,omitempty"`
	Unit        *string    `db:"unit" json:"unit,omitempty"`
	Flag        *string    `db:"flag" json:"flag,omitempty"`
	LatestAt    time.Time  `db:"latest_at" json:"latest_at"`
	Total       int        `db:"total" json:"total"`
	OutOfRange  int        `db:"out_of_range" json:"out_of_range"`
}
