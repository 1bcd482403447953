package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const docCols = `id, subject_id, filename, content_type, size_bytes, storage_key,
	status, lab_name, report_date, report_type, processing_error, processed_at,
	created_at, updated_at`

func (r *repoPG) scanDoc(row pgx.Row, withCount bool) (*Document, error) {
	var d Document
	dest := []interface{}{&d.ID, &d.SubjectID, &d.Filename, &d.ContentType, &d.SizeBytes, &d.StorageKey,
		&d.Status, &d.LabName, &d.ReportDate, &d.ReportType, &d.ProcessingError, &d.ProcessedAt,
		&d.CreatedAt, &d.UpdatedAt}
	if withCount {
		dest = append(dest, &d.ResultsCount)
	}
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	if d.Status == "" {
		d.Status = StatusPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document (id, subject_id, filename, content_type, size_bytes, storage_key, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.SubjectID, d.Filename, d.ContentType, d.SizeBytes, d.StorageKey, d.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return r.scanDoc(r.pool.QueryRow(ctx, `SELECT `+docCols+` FROM document WHERE id = $1`, id), false)
}

func (r *repoPG) List(ctx context.Context, subjectID uuid.UUID, status string, limit, offset int) ([]*Document, int, error) {
	query := `SELECT ` + docCols + `,
		(SELECT COUNT(*) FROM observation o WHERE o.document_id = document.id) AS results_count
		FROM document WHERE subject_id = $1`
	countQuery := `SELECT COUNT(*) FROM document WHERE subject_id = $1`
	args := []interface{}{subjectID}
	idx := 2

	if status != "" {
		cond := fmt.Sprintf(` AND status = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Document
	for rows.Next() {
		d, err := r.scanDoc(rows, true)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkCompleted(ctx context.Context, d *Document) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document SET status = $2, lab_name = $3, report_date = $4, report_type = $5,
			processing_error = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		d.ID, StatusCompleted, d.LabName, d.ReportDate, d.ReportType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document SET status = $2, processing_error = $3, updated_at = NOW()
		WHERE id = $1`, id, StatusFailed, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Reset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document SET status = $2, lab_name = NULL, report_date = NULL, report_type = NULL,
			processing_error = NULL, processed_at = NULL, updated_at = NOW()
		WHERE id = $1`, id, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
