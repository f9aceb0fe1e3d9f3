package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/pkg/pagination"
)

// StoredEntry is an audit row as read back from the trail.
type StoredEntry struct {
	ID         int64          `json:"id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID *uuid.UUID     `json:"resource_id,omitempty"`
	Outcome    string         `json:"outcome"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Reader lists audit entries, newest first.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

func (r *Reader) List(ctx context.Context, p pagination.Params) ([]StoredEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit list count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, actor_email, action, resource, resource_id, outcome, metadata, created_at
		FROM audit_log ORDER BY id DESC `+p.SQL())
	if err != nil {
		return nil, 0, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		var e StoredEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.Resource,
			&e.ResourceID, &e.Outcome, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("audit list scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit list: %w", err)
	}
	return entries, total, nil
}

// Handler exposes the trail to super-admins. The trail spans facilities, so
// facility admins do not get to read it.
type Handler struct {
	reader *Reader
}

func NewHandler(reader *Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-log", h.List, auth.RequireAdmin())
}

func (h *Handler) List(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !actor.IsSuperAdmin() {
		return apperr.New(apperr.KindForbidden, "super-admin access required")
	}

	p := pagination.FromContext(c)
	entries, total, err := h.reader.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []StoredEntry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}
