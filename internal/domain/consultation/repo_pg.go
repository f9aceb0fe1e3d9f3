package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/crypto"
)

const uniqueViolation = "23505"

type repoPG struct {
	pool  *pgxpool.Pool
	codec *crypto.FieldCodec
}

func NewRepo(pool *pgxpool.Pool, codec *crypto.FieldCodec) Repository {
	return &repoPG{pool: pool, codec: codec}
}

// -- Types --

const typeCols = `id, slug, name, display_order, deleted, created_at, updated_at`

func scanType(row pgx.Row) (*Type, error) {
	t := &Type{}
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Order, &t.Deleted, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("consultation type scan: %w", err)
	}
	return t, nil
}

func (r *repoPG) CreateType(ctx context.Context, t *Type) error {
	t.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO consultation_types (id, slug, name, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		t.ID, t.Slug, t.Name, t.Order,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Newf(apperr.KindConflict, "slug %q already exists", t.Slug)
		}
		return fmt.Errorf("consultation type create: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateType(ctx context.Context, t *Type) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultation_types SET name = $2, display_order = $3, updated_at = NOW()
		WHERE id = $1 AND NOT deleted`,
		t.ID, t.Name, t.Order,
	)
	if err != nil {
		return fmt.Errorf("consultation type update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	return nil
}

func (r *repoPG) DeleteType(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultation_types SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("consultation type delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	return nil
}

func (r *repoPG) ListTypes(ctx context.Context) ([]*Type, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+typeCols+` FROM consultation_types
		WHERE NOT deleted ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("consultation type list: %w", err)
	}
	defer rows.Close()

	var types []*Type
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation type list: %w", err)
	}
	return types, nil
}

func (r *repoPG) GetTypeByID(ctx context.Context, id uuid.UUID) (*Type, error) {
	return scanType(r.pool.QueryRow(ctx, `
		SELECT `+typeCols+` FROM consultation_types WHERE id = $1 AND NOT deleted`, id))
}

func (r *repoPG) GetTypeBySlug(ctx context.Context, slug string) (*Type, error) {
	return scanType(r.pool.QueryRow(ctx, `
		SELECT `+typeCols+` FROM consultation_types WHERE slug = $1 AND NOT deleted`, slug))
}

// -- Templates --

const templateCols = `id, consultation_type_id, version, structure, template, is_active, created_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	t := &Template{}
	var structure []byte
	err := row.Scan(&t.ID, &t.ConsultationTypeID, &t.Version, &structure, &t.Template, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "template not found")
	}
	if err != nil {
		return nil, fmt.Errorf("template scan: %w", err)
	}
	if err := json.Unmarshal(structure, &t.Structure); err != nil {
		return nil, fmt.Errorf("template %s structure: %w", t.ID, err)
	}
	return t, nil
}

func (r *repoPG) CreateTemplate(ctx context.Context, t *Template, activate bool) error {
	structure, err := json.Marshal(t.Structure)
	if err != nil {
		return fmt.Errorf("template create: %w", err)
	}
	t.ID = uuid.New()
	t.IsActive = activate

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("template create: %w", err)
	}
	defer tx.Rollback(ctx)

	if activate {
		if _, err := tx.Exec(ctx, `
			UPDATE consultation_templates SET is_active = FALSE
			WHERE consultation_type_id = $1 AND is_active`, t.ConsultationTypeID); err != nil {
			return fmt.Errorf("template deactivate: %w", err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO consultation_templates (id, consultation_type_id, version, structure, template, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		t.ID, t.ConsultationTypeID, t.Version, structure, t.Template, t.IsActive,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("template create: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *repoPG) ListTemplates(ctx context.Context, typeID uuid.UUID) ([]*Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateCols+` FROM consultation_templates
		WHERE consultation_type_id = $1 ORDER BY created_at DESC`, typeID)
	if err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	return templates, nil
}

func (r *repoPG) GetActiveTemplate(ctx context.Context, typeID uuid.UUID) (*Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `
		SELECT `+templateCols+` FROM consultation_templates
		WHERE consultation_type_id = $1 AND is_active`, typeID))
}

func (r *repoPG) ActivateTemplate(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("template activate: %w", err)
	}
	defer tx.Rollback(ctx)

	var typeID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT consultation_type_id FROM consultation_templates WHERE id = $1`, id,
	).Scan(&typeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.KindNotFound, "template not found")
	}
	if err != nil {
		return fmt.Errorf("template activate: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE consultation_templates SET is_active = FALSE
		WHERE consultation_type_id = $1 AND is_active`, typeID); err != nil {
		return fmt.Errorf("template deactivate: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE consultation_templates SET is_active = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("template activate: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *repoPG) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM consultation_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("template delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "template not found")
	}
	return nil
}

// -- Sections --

func (r *repoPG) UpsertSection(ctx context.Context, s *Section) error {
	data, err := r.codec.EncryptValue(s.Data)
	if err != nil {
		return fmt.Errorf("section upsert: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO patient_consultations (id, patient_id, consultation_type_id, data, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_id, consultation_type_id)
		DO UPDATE SET data = EXCLUDED.data, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), s.PatientID, s.ConsultationTypeID, data, s.UpdatedBy,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("section upsert: %w", err)
	}
	return nil
}

func (r *repoPG) SectionsByPatient(ctx context.Context, patientID uuid.UUID) (map[string]map[string]any, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ct.slug, pc.data
		FROM patient_consultations pc
		JOIN consultation_types ct ON ct.id = pc.consultation_type_id
		WHERE pc.patient_id = $1 AND NOT ct.deleted`, patientID)
	if err != nil {
		return nil, fmt.Errorf("sections by patient: %w", err)
	}
	defer rows.Close()

	sections := make(map[string]map[string]any)
	for rows.Next() {
		var slug string
		var data *string
		if err := rows.Scan(&slug, &data); err != nil {
			return nil, fmt.Errorf("sections by patient: %w", err)
		}
		if data == nil {
			sections[slug] = map[string]any{}
			continue
		}
		var payload map[string]any
		if err := r.codec.DecryptValue(*data, &payload); err != nil {
			return nil, fmt.Errorf("section %s: %w", slug, err)
		}
		sections[slug] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sections by patient: %w", err)
	}
	return sections, nil
}
