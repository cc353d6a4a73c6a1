package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/platform/db"
)

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const timelineQuery = `
	SELECT id, occurred_at, actor_id, action, entity, entity_id, meta
	FROM audit_logs
	WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR occurred_at < $2)
	  AND ($3::text IS NULL OR actor_id = $3)
	  AND ($4::text IS NULL OR entity = $4)
	  AND ($5::text IS NULL OR action = $5)
	ORDER BY occurred_at DESC, id DESC
	OFFSET $6
	LIMIT $7`

// Window returns one page of rows, newest first. A non-positive Limit
// returns every matching row.
func (r *Repository) Window(ctx context.Context, p WindowParams) ([]TimelineRow, error) {
	var limit pgtype.Int8
	if p.Limit > 0 {
		limit = pgtype.Int8{Int64: int64(p.Limit), Valid: true}
	}
	rows, err := r.pool.Query(ctx, timelineQuery,
		toPgTime(p.From), toPgTime(p.To),
		optionalText(p.Actor), optionalText(p.Entity), optionalText(p.Action),
		p.Offset, limit)
	if err != nil {
		return nil, db.Unavailable(err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.ID, &row.At, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, db.Unavailable(rows.Err())
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
