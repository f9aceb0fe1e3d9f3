package facility

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/apperr"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	f.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO facilities (id, name, city)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		f.ID, f.Name, f.City,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("facility create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	f := &Facility{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, city, created_at FROM facilities WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.City, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "facility not found")
	}
	if err != nil {
		return nil, fmt.Errorf("facility get: %w", err)
	}
	return f, nil
}

func (r *repoPG) Update(ctx context.Context, f *Facility) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE facilities SET name = $2, city = $3 WHERE id = $1`,
		f.ID, f.Name, f.City,
	)
	if err != nil {
		return fmt.Errorf("facility update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "facility not found")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("facility delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "facility not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Facility, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, city, created_at FROM facilities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("facility list: %w", err)
	}
	defer rows.Close()

	var facilities []*Facility
	for rows.Next() {
		f := &Facility{}
		if err := rows.Scan(&f.ID, &f.Name, &f.City, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("facility scan: %w", err)
		}
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("facility list: %w", err)
	}
	return facilities, nil
}
