// Package pipeline drives a document from upload to normalized observations:
// extraction of the report content, observation creation and per-observation
// normalization, all running as background tasks.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tahkootay/LabTrack/internal/domain/document"
	"github.com/tahkootay/LabTrack/internal/domain/result"
	"github.com/tahkootay/LabTrack/internal/normalize"
	"github.com/tahkootay/LabTrack/internal/platform/blobstore"
	"github.com/tahkootay/LabTrack/internal/platform/extract"
	"github.com/tahkootay/LabTrack/internal/platform/tasks"
)

// Queue schedules background tasks. *tasks.Runner satisfies it.
type Queue interface {
	Enqueue(kind tasks.Kind, id uuid.UUID)
}

type Processor struct {
	documents    document.Repository
	observations result.Repository
	blobs        blobstore.Store
	extractor    extract.Extractor
	normalizer   *normalize.Normalizer
	queue        Queue
	log          zerolog.Logger
}

func NewProcessor(
	documents document.Repository,
	observations result.Repository,
	blobs blobstore.Store,
	extractor extract.Extractor,
	normalizer *normalize.Normalizer,
	queue Queue,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		documents:    documents,
		observations: observations,
		blobs:        blobs,
		extractor:    extractor,
		normalizer:   normalizer,
		queue:        queue,
		log:          log,
	}
}

// Register binds the processor to its task kinds.
func (p *Processor) Register(r *tasks.Runner) {
	r.Register(tasks.KindProcessDocument, p.ProcessDocument, tasks.ProcessDocumentPolicy)
	r.Register(tasks.KindNormalizeResult, p.NormalizeResult, tasks.NormalizeResultPolicy)
}

// ProcessDocument extracts the report content, stores one observation per
// extracted analyte and schedules their normalization. Failures mark the
// document failed and are returned so the task is retried.
func (p *Processor) ProcessDocument(ctx context.Context, documentID uuid.UUID) error {
	d, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := p.documents.SetStatus(ctx, d.ID, document.StatusProcessing); err != nil {
		return err
	}

	data, err := p.blobs.Get(ctx, d.StorageKey)
	if err != nil {
		return p.fail(ctx, d.ID, fmt.Errorf("reading stored file: %w", err))
	}

	report, err := p.extractor.Extract(ctx, d.ContentType, data)
	if err != nil {
		return p.fail(ctx, d.ID, fmt.Errorf("extracting report: %w", err))
	}

	if name := strings.TrimSpace(report.LabName); name != "" {
		d.LabName = &name
	}
	if rt := strings.TrimSpace(report.ReportType); rt != "" {
		d.ReportType = &rt
	}
	if date, err := time.Parse("2006-01-02", report.ReportDate); err == nil {
		d.ReportDate = &date
	}

	created := 0
	for _, a := range report.Analytes {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		obs := &result.Observation{
			DocumentID:  d.ID,
			SubjectID:   d.SubjectID,
			SourceLabel: name,
			RawValue:    a.Value,
			RawUnit:     optional(a.Unit),
			RawRefRange: optional(a.ReferenceRange),
			RawFlag:     optional(a.Flag),
			Comments:    optional(a.Comments),
			Status:      result.StatusPending,
		}
		if err := p.observations.Create(ctx, obs); err != nil {
			return p.fail(ctx, d.ID, fmt.Errorf("storing observation: %w", err))
		}
		p.queue.Enqueue(tasks.KindNormalizeResult, obs.ID)
		created++
	}

	if err := p.documents.MarkCompleted(ctx, d); err != nil {
		return err
	}
	p.log.Info().
		Str("document_id", d.ID.String()).
		Int("observations", created).
		Msg("document processed")
	return nil
}

// NormalizeResult recomputes the derived fields of one observation and
// persists the outcome, normalized or failed.
func (p *Processor) NormalizeResult(ctx context.Context, observationID uuid.UUID) error {
	obs, err := p.observations.GetByID(ctx, observationID)
	if err != nil {
		return err
	}

	var labName *string
	if d, err := p.documents.GetByID(ctx, obs.DocumentID); err == nil {
		labName = d.LabName
	}

	normErr := p.normalizer.Normalize(ctx, obs, labName)
	if err := p.observations.UpdateDerived(ctx, obs); err != nil {
		return err
	}
	return normErr
}

// Reprocess drops a document's observations, resets its state and runs the
// whole pipeline again. Raw files are kept, so no re-upload is needed.
func (p *Processor) Reprocess(ctx context.Context, documentID uuid.UUID) error {
	if _, err := p.documents.GetByID(ctx, documentID); err != nil {
		return err
	}
	deleted, err := p.observations.DeleteByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := p.documents.Reset(ctx, documentID); err != nil {
		return err
	}
	p.queue.Enqueue(tasks.KindProcessDocument, documentID)
	p.log.Info().
		Str("document_id", documentID.String()).
		Int64("dropped_observations", deleted).
		Msg("document queued for reprocessing")
	return nil
}

func (p *Processor) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := p.documents.MarkFailed(ctx, id, cause.Error()); err != nil {
		p.log.Error().Err(err).Str("document_id", id.String()).Msg("marking document failed")
	}
	return cause
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
