package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const obsCols = `id, document_id, subject_id, analyte_id,
	source_label, raw_value, raw_unit, raw_reference_range, raw_flag, comments,
	value, unit, is_numeric, ref_min, ref_max, flag, out_of_range, suspect,
	delta, delta_percent, match_confidence, match_type,
	normalization_status, processing_notes, created_at, updated_at`

const qualifiedObsCols = `o.id, o.document_id, o.subject_id, o.analyte_id,
	o.source_label, o.raw_value, o.raw_unit, o.raw_reference_range, o.raw_flag, o.comments,
	o.value, o.unit, o.is_numeric, o.ref_min, o.ref_max, o.flag, o.out_of_range, o.suspect,
	o.delta, o.delta_percent, o.match_confidence, o.match_type,
	o.normalization_status, o.processing_notes, o.created_at, o.updated_at`

func (r *repoPG) scanObs(row pgx.Row) (*Observation, error) {
	var o Observation
	err := row.Scan(&o.ID, &o.DocumentID, &o.SubjectID, &o.AnalyteID,
		&o.SourceLabel, &o.RawValue, &o.RawUnit, &o.RawRefRange, &o.RawFlag, &o.Comments,
		&o.Value, &o.Unit, &o.IsNumeric, &o.RefMin, &o.RefMax, &o.Flag, &o.OutOfRange, &o.Suspect,
		&o.Delta, &o.DeltaPercent, &o.MatchConfidence, &o.MatchType,
		&o.Status, &o.ProcessingNotes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Observation) error {
	o.ID = uuid.New()
	if o.Status == "" {
		o.Status = StatusPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO observation (id, document_id, subject_id, analyte_id,
			source_label, raw_value, raw_unit, raw_reference_range, raw_flag, comments,
			normalization_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.DocumentID, o.SubjectID, o.AnalyteID,
		o.SourceLabel, o.RawValue, o.RawUnit, o.RawRefRange, o.RawFlag, o.Comments,
		o.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return r.scanObs(r.pool.QueryRow(ctx, `SELECT `+obsCols+` FROM observation WHERE id = $1`, id))
}

func (r *repoPG) UpdateDerived(ctx context.Context, o *Observation) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE observation SET analyte_id=$2, value=$3, unit=$4, is_numeric=$5,
			ref_min=$6, ref_max=$7, flag=$8, out_of_range=$9, suspect=$10,
			delta=$11, delta_percent=$12, match_confidence=$13, match_type=$14,
			normalization_status=$15, processing_notes=$16, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.AnalyteID, o.Value, o.Unit, o.IsNumeric,
		o.RefMin, o.RefMax, o.Flag, o.OutOfRange, o.Suspect,
		o.Delta, o.DeltaPercent, o.MatchConfidence, o.MatchType,
		o.Status, o.ProcessingNotes)
	return err
}

func (r *repoPG) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM observation WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+obsCols+` FROM observation WHERE document_id = $1 ORDER BY created_at`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) Search(ctx context.Context, f Filters, limit, offset int) ([]*Observation, int, error) {
	query := `SELECT ` + obsCols + ` FROM observation o WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM observation o WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, value interface{}) {
		cond := fmt.Sprintf(clause, idx)
		query += cond
		countQuery += cond
		args = append(args, value)
		idx++
	}

	if f.SubjectID != nil {
		add(` AND o.subject_id = $%d`, *f.SubjectID)
	}
	if f.DocumentID != nil {
		add(` AND o.document_id = $%d`, *f.DocumentID)
	}
	if f.AnalyteCode != "" {
		add(` AND o.analyte_id IN (SELECT id FROM analyte WHERE code = $%d)`, f.AnalyteCode)
	}
	if f.From != nil {
		add(` AND o.created_at >= $%d`, *f.From)
	}
	if f.To != nil {
		add(` AND o.created_at <= $%d`, *f.To)
	}
	if f.OutOfRange != nil {
		add(` AND o.out_of_range = $%d`, *f.OutOfRange)
	}
	if f.Suspect != nil {
		add(` AND o.suspect = $%d`, *f.Suspect)
	}
	if f.Status != "" {
		add(` AND o.normalization_status = $%d`, f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) HistoryByAnalyte(ctx context.Context, subjectID uuid.UUID, analyteCode string) ([]*Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+qualifiedObsCols+` FROM observation o
		JOIN analyte a ON a.id = o.analyte_id
		WHERE o.subject_id = $1 AND a.code = $2
			AND o.is_numeric AND o.normalization_status = $3
		ORDER BY o.created_at`, subjectID, analyteCode, StatusNormalized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) HistoryByLabel(ctx context.Context, subjectID uuid.UUID, sourceLabel string) ([]*Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+obsCols+` FROM observation
		WHERE subject_id = $1 AND lower(source_label) = lower($2)
		ORDER BY created_at`, subjectID, sourceLabel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) FindPrevious(ctx context.Context, subjectID, analyteID, excludeDocumentID uuid.UUID, before time.Time) (*Observation, error) {
	return r.scanObs(r.pool.QueryRow(ctx, `
		SELECT `+obsCols+` FROM observation
		WHERE subject_id = $1 AND analyte_id = $2 AND document_id <> $3
			AND is_numeric AND normalization_status = $4 AND created_at < $5
		ORDER BY created_at DESC LIMIT 1`,
		subjectID, analyteID, excludeDocumentID, StatusNormalized, before))
}

func (r *repoPG) Summary(ctx context.Context, subjectID uuid.UUID) ([]*AnalyteSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (o.analyte_id)
			o.analyte_id, a.code, a.name, o.value, o.unit, o.flag, o.created_at,
			COUNT(*) OVER (PARTITION BY o.analyte_id),
			COUNT(*) FILTER (WHERE o.out_of_range) OVER (PARTITION BY o.analyte_id)
		FROM observation o
		JOIN analyte a ON a.id = o.analyte_id
		WHERE o.subject_id = $1 AND o.analyte_id IS NOT NULL
			AND o.normalization_status = $2
		ORDER BY o.analyte_id, o.created_at DESC`, subjectID, StatusNormalized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AnalyteSummary
	for rows.Next() {
		var s AnalyteSummary
		if err := rows.Scan(&s.AnalyteID, &s.Code, &s.Name, &s.LatestValue, &s.Unit,
			&s.Flag, &s.LatestAt, &s.Total, &s.OutOfRange); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Observation, error) {
	var items []*Observation
	for rows.Next() {
		o, err := r.scanObs(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
