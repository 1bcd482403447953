package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Analyte Repository ===========

type analyteRepoPG struct{ pool *pgxpool.Pool }

func NewAnalyteRepoPG(pool *pgxpool.Pool) AnalyteRepository {
	return &analyteRepoPG{pool: pool}
}

const analyteCols = `id, code, name, description, loinc_code,
	default_unit, unit_category, reference_ranges, is_active, created_at, updated_at`

func (r *analyteRepoPG) scanAnalyte(row pgx.Row) (*Analyte, error) {
	var a Analyte
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.LoincCode,
		&a.DefaultUnit, &a.UnitCategory, &a.ReferenceRanges, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *analyteRepoPG) Create(ctx context.Context, a *Analyte) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analyte (id, code, name, description, loinc_code,
			default_unit, unit_category, reference_ranges, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.Code, a.Name, a.Description, a.LoincCode,
		a.DefaultUnit, a.UnitCategory, a.ReferenceRanges, a.IsActive)
	return err
}

func (r *analyteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Analyte, error) {
	return r.scanAnalyte(r.pool.QueryRow(ctx, `SELECT `+analyteCols+` FROM analyte WHERE id = $1`, id))
}

func (r *analyteRepoPG) GetByCode(ctx context.Context, code string) (*Analyte, error) {
	return r.scanAnalyte(r.pool.QueryRow(ctx, `SELECT `+analyteCols+` FROM analyte WHERE code = $1`, code))
}

func (r *analyteRepoPG) Update(ctx context.Context, a *Analyte) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE analyte SET name=$2, description=$3, loinc_code=$4,
			default_unit=$5, unit_category=$6, reference_ranges=$7, is_active=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Name, a.Description, a.LoincCode,
		a.DefaultUnit, a.UnitCategory, a.ReferenceRanges, a.IsActive)
	return err
}

func (r *analyteRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE analyte SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *analyteRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Analyte, int, error) {
	query := `SELECT ` + analyteCols + ` FROM analyte WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM analyte WHERE 1=1`
	if activeOnly {
		query += ` AND is_active`
		countQuery += ` AND is_active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, query+` ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Analyte
	for rows.Next() {
		a, err := r.scanAnalyte(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *analyteRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Analyte, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM analyte WHERE code ILIKE $1 OR name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+analyteCols+` FROM analyte
		WHERE code ILIKE $1 OR name ILIKE $1
		ORDER BY code LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Analyte
	for rows.Next() {
		a, err := r.scanAnalyte(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *analyteRepoPG) ListActive(ctx context.Context) ([]*Analyte, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+analyteCols+` FROM analyte WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Analyte
	for rows.Next() {
		a, err := r.scanAnalyte(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

// =========== AnalyteMapping Repository ===========

type mappingRepoPG struct{ pool *pgxpool.Pool }

func NewMappingRepoPG(pool *pgxpool.Pool) MappingRepository {
	return &mappingRepoPG{pool: pool}
}

const mappingCols = `id, source_label, analyte_id, lab_name, confidence, is_validated, created_at, updated_at`

func (r *mappingRepoPG) scanMapping(row pgx.Row) (*AnalyteMapping, error) {
	var m AnalyteMapping
	err := row.Scan(&m.ID, &m.SourceLabel, &m.AnalyteID, &m.LabName,
		&m.Confidence, &m.IsValidated, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *mappingRepoPG) Upsert(ctx context.Context, m *AnalyteMapping) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO analyte_mapping (id, source_label, analyte_id, lab_name, confidence, is_validated)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (lower(source_label), analyte_id, COALESCE(lab_name, ''))
		DO UPDATE SET confidence = EXCLUDED.confidence,
			is_validated = EXCLUDED.is_validated,
			updated_at = NOW()
		RETURNING id`,
		m.ID, m.SourceLabel, m.AnalyteID, m.LabName, m.Confidence, m.IsValidated).Scan(&m.ID)
}

func (r *mappingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AnalyteMapping, error) {
	return r.scanMapping(r.pool.QueryRow(ctx, `SELECT `+mappingCols+` FROM analyte_mapping WHERE id = $1`, id))
}

func (r *mappingRepoPG) FindBySourceLabel(ctx context.Context, sourceLabel string, labName *string) ([]*AnalyteMapping, error) {
	query := `SELECT ` + mappingCols + ` FROM analyte_mapping WHERE lower(source_label) = lower($1)`
	args := []interface{}{sourceLabel}
	if labName != nil {
		query += ` AND (lab_name = $2 OR lab_name IS NULL)
			ORDER BY lab_name IS NULL, confidence DESC`
		args = append(args, *labName)
	} else {
		query += ` ORDER BY confidence DESC`
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AnalyteMapping
	for rows.Next() {
		m, err := r.scanMapping(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *mappingRepoPG) ListByAnalyte(ctx context.Context, analyteID uuid.UUID) ([]*AnalyteMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+mappingCols+` FROM analyte_mapping
		WHERE analyte_id = $1 ORDER BY source_label`, analyteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AnalyteMapping
	for rows.Next() {
		m, err := r.scanMapping(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}

func (r *mappingRepoPG) SetValidated(ctx context.Context, id uuid.UUID, validated bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analyte_mapping SET is_validated = $2, updated_at = NOW() WHERE id = $1`, id, validated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mappingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM analyte_mapping WHERE id = $1`, id)
	return err
}
