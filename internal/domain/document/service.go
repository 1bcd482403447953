package document

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tahkootay/LabTrack/internal/platform/blobstore"
)

// Enqueuer schedules background processing for an uploaded document.
type Enqueuer interface {
	EnqueueProcessDocument(id uuid.UUID)
}

// EnqueueFunc adapts a plain function to the Enqueuer interface.
type EnqueueFunc func(uuid.UUID)

func (f EnqueueFunc) EnqueueProcessDocument(id uuid.UUID) { f(id) }

type Service struct {
	repo  Repository
	blobs blobstore.Store
	queue Enqueuer
	log   zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, queue Enqueuer, log zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, queue: queue, log: log}
}

// Upload stores the report file, records the document as pending and
// schedules its processing.
func (s *Service) Upload(ctx context.Context, subjectID uuid.UUID, filename, contentType string, content io.Reader) (*Document, error) {
	filename = strings.TrimSpace(filename)
	key, size, err := s.blobs.Put(ctx, filename, contentType, content)
	if err != nil {
		return nil, err
	}

	d := &Document{
		SubjectID:   subjectID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  key,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		// The blob is orphaned if the row insert fails; remove it.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warn().Err(delErr).Str("storage_key", key).Msg("orphaned blob cleanup failed")
		}
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.queue.EnqueueProcessDocument(d.ID)
	s.log.Info().Str("document_id", d.ID.String()).Str("filename", filename).Int64("size_bytes", size).Msg("document uploaded")
	return d, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, subjectID uuid.UUID, status string, limit, offset int) ([]*Document, int, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		default:
			return nil, 0, fmt.Errorf("unknown status %q", status)
		}
	}
	return s.repo.List(ctx, subjectID, status, limit, offset)
}

// DeleteDocument removes the document row and its stored file. Observations
// go with the row via the foreign key.
func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, d.StorageKey); err != nil {
		s.log.Warn().Err(err).Str("storage_key", d.StorageKey).Msg("blob removal failed")
	}
	return nil
}
