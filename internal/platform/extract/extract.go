// Package extract turns uploaded lab report files into structured data using
// an LLM vision model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no usable output.
var ErrEmptyResponse = errors.New("extraction returned no content")

// Analyte is one result row as read off the report.
type Analyte struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Flag           string `json:"flag,omitempty"`
	Comments       string `json:"comments,omitempty"`
}

// Report is the structured content of one lab report document.
type Report struct {
	LabName            string    `json:"lab_name,omitempty"`
	ReportDate         string    `json:"report_date,omitempty"` // YYYY-MM-DD
	ReportType         string    `json:"report_type,omitempty"`
	Analytes           []Analyte `json:"analytes"`
	AdditionalComments string    `json:"additional_comments,omitempty"`
}

// Extractor reads a report file and returns its structured content.
type Extractor interface {
	Extract(ctx context.Context, contentType string, data []byte) (*Report, error)
}

// stripCodeFences removes a surrounding markdown code fence, which models
// sometimes emit around JSON even when asked not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseReport decodes the model output into a Report.
func parseReport(raw string) (*Report, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}
	var r Report
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("decoding extraction output: %w", err)
	}
	return &r, nil
}
