package catalog

import (
	"time"

	"github.com/google/uuid"
)

// RefRange is a single cohort reference interval. Either bound may be open.
type RefRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Analyte maps to the analyte table: one canonical laboratory measurand.
// ReferenceRanges is keyed by cohort ("normal", "male", "female", ...).
type Analyte struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	Code            string              `db:"code" json:"code"`
	Name            string              `db:"name" json:"name"`
	Description     *string             `db:"description" json:"description,omitempty"`
	LoincCode       *string             `db:"loinc_code" json:"loinc_code,omitempty"`
	DefaultUnit     *string             `db:"default_unit" json:"default_unit,omitempty"`
	UnitCategory    *string             `db:"unit_category" json:"unit_category,omitempty"`
	ReferenceRanges map[string]RefRange `db:"reference_ranges" json:"reference_ranges,omitempty"`
	IsActive        bool                `db:"is_active" json:"is_active"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// AnalyteMapping maps to the analyte_mapping table. It links a laboratory's
// source label to an analyte. A mapping is unique per
// (source_label, analyte, lab_name); a NULL lab_name means the mapping
// applies to any laboratory.
type AnalyteMapping struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SourceLabel string    `db:"source_label" json:"source_label"`
	AnalyteID   uuid.UUID `db:"analyte_id" json:"analyte_id"`
	LabName     *string   `db:"lab_name" json:"lab_name,omitempty"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	IsValidated bool      `db:"is_validated" json:"is_validated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
