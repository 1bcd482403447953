package document

import (
	"time"

	"github.com/google/uuid"
)

// Processing statuses for a document.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document maps to the document table: one uploaded lab report file and its
// processing state. The extracted report metadata (lab name, report date,
// report type) is filled in when processing completes.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SubjectID   uuid.UUID `db:"subject_id" json:"subject_id"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey  string    `db:"storage_key" json:"-"`
	Status      string    `db:"status" json:"status"`

	LabName         *string    `db:"lab_name" json:"lab_name,omitempty"`
	ReportDate      *time.Time `db:"report_date" json:"report_date,omitempty"`
	ReportType      *string    `db:"report_type" json:"report_type,omitempty"`
	ProcessingError *string    `db:"processing_error" json:"processing_error,omitempty"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`

	// ResultsCount is populated by list queries only.
	ResultsCount int `db:"results_count" json:"results_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
