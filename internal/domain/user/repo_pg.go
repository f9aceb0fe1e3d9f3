package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/apperr"
)

const uniqueViolation = "23505"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const userCols = `id, email, password_hash, family_name, given_name, role, is_active, facility_id, created_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FamilyName, &u.GivenName,
		&u.Role, &u.IsActive, &u.FacilityID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("user scan: %w", err)
	}
	return u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, family_name, given_name, role, is_active, facility_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FamilyName, u.GivenName, u.Role, u.IsActive, u.FacilityID,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.New(apperr.KindConflict, "email already registered")
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *repoPG) List(ctx context.Context, scope Scope, pendingOnly bool) ([]*User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE 1=1`
	var args []any
	if !scope.All {
		args = append(args, scope.FacilityID)
		query += fmt.Sprintf(` AND facility_id = $%d`, len(args))
	}
	if pendingOnly {
		query += ` AND NOT is_active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	return users, nil
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("user set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

func (r *repoPG) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("user set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

func (r *repoPG) SetFacility(ctx context.Context, id uuid.UUID, facilityID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET facility_id = $2 WHERE id = $1`, id, facilityID)
	if err != nil {
		return fmt.Errorf("user set facility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}
