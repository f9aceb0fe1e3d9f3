package patient

import (
	"context"
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

const patientCols = `id, name, given_name, external_id, dob, sex, facility_id, created_by, deleted, created_at, updated_at`

// scanPatient decrypts the identity columns after scanning. A failed
// decryption aborts the read: corrupted ciphertext must never be presented
// as patient data.
func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	p := &Patient{}
	var name, givenName, dob string
	var externalID *string

	err := row.Scan(&p.ID, &name, &givenName, &externalID, &dob, &p.Sex,
		&p.FacilityID, &p.CreatedBy, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("patient scan: %w", err)
	}

	if p.Name, err = r.codec.DecryptString(name); err != nil {
		return nil, fmt.Errorf("patient %s name: %w", p.ID, err)
	}
	if p.GivenName, err = r.codec.DecryptString(givenName); err != nil {
		return nil, fmt.Errorf("patient %s given_name: %w", p.ID, err)
	}
	if p.ExternalID, err = r.codec.DecryptStringPtr(externalID); err != nil {
		return nil, fmt.Errorf("patient %s external_id: %w", p.ID, err)
	}
	if p.DOB, err = r.codec.DecryptString(dob); err != nil {
		return nil, fmt.Errorf("patient %s dob: %w", p.ID, err)
	}
	return p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()

	name, err := r.codec.EncryptString(p.Name)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	givenName, err := r.codec.EncryptString(p.GivenName)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	externalID, err := r.codec.EncryptStringPtr(p.ExternalID)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	dob, err := r.codec.EncryptString(p.DOB)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO patients (
			id, name, given_name, external_id, dob, sex, facility_id, created_by,
			name_digest, given_name_digest, external_id_digest, dob_digest
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, name, givenName, externalID, dob, p.Sex, p.FacilityID, p.CreatedBy,
		r.codec.Digest(p.Name), r.codec.Digest(p.GivenName),
		r.codec.DigestPtr(p.ExternalID), r.codec.Digest(p.DOB),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.New(apperr.KindConflict, "patient already exists")
		}
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.pool.QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients WHERE id = $1 AND NOT deleted`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	name, err := r.codec.EncryptString(p.Name)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	givenName, err := r.codec.EncryptString(p.GivenName)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	externalID, err := r.codec.EncryptStringPtr(p.ExternalID)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	dob, err := r.codec.EncryptString(p.DOB)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET
			name = $2, given_name = $3, external_id = $4, dob = $5, sex = $6,
			name_digest = $7, given_name_digest = $8, external_id_digest = $9, dob_digest = $10,
			updated_at = NOW()
		WHERE id = $1 AND NOT deleted`,
		p.ID, name, givenName, externalID, dob, p.Sex,
		r.codec.Digest(p.Name), r.codec.Digest(p.GivenName),
		r.codec.DigestPtr(p.ExternalID), r.codec.Digest(p.DOB),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.New(apperr.KindConflict, "patient already exists")
		}
		return fmt.Errorf("patient update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "patient not found")
	}
	return nil
}

func (r *repoPG) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("patient archive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "patient not found")
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, facility *uuid.UUID, scoped bool, f Filters) ([]*Patient, error) {
	query := `SELECT ` + patientCols + ` FROM patients WHERE NOT deleted`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if scoped {
		query += ` AND facility_id = ` + arg(facility)
	}

	if f.Query != "" {
		d := arg(r.codec.Digest(f.Query))
		query += fmt.Sprintf(` AND (name_digest = %s OR given_name_digest = %s OR external_id_digest = %s)`, d, d, d)
	} else {
		if f.Name != "" {
			query += ` AND name_digest = ` + arg(r.codec.Digest(f.Name))
		}
		if f.GivenName != "" {
			query += ` AND given_name_digest = ` + arg(r.codec.Digest(f.GivenName))
		}
		if f.ExternalID != "" {
			query += ` AND external_id_digest = ` + arg(r.codec.Digest(f.ExternalID))
		}
		if f.Sex != "" {
			query += ` AND sex = ` + arg(f.Sex)
		}
	}

	query += ` ORDER BY updated_at DESC LIMIT ` + arg(SearchLimit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	return patients, nil
}

func (r *repoPG) FindDuplicate(ctx context.Context, facility *uuid.UUID, name, givenName, dob string, exclude *uuid.UUID) (*Patient, error) {
	query := `
		SELECT ` + patientCols + ` FROM patients
		WHERE NOT deleted
		  AND facility_id IS NOT DISTINCT FROM $1
		  AND name_digest = $2 AND given_name_digest = $3 AND dob_digest = $4`
	args := []any{facility, r.codec.Digest(name), r.codec.Digest(givenName), r.codec.Digest(dob)}
	if exclude != nil {
		args = append(args, exclude)
		query += fmt.Sprintf(` AND id <> $%d`, len(args))
	}

	p, err := r.scanPatient(r.pool.QueryRow(ctx, query, args...))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
