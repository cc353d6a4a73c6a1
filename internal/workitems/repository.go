package workitems

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/platform/db"
)

// document is the JSONB body of a row; ids and timestamps are columns.
type document struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	AssigneeID  string `json:"assigneeId,omitempty"`
	CustomerID  string `json:"customerId,omitempty"`
}

// Repository provides PostgreSQL backed persistence for one kind.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRepository constructs a repository for kind.
func NewRepository(pool *pgxpool.Pool, kind Kind) *Repository {
	return &Repository{pool: pool, table: kind.table}
}

func toDocument(item Item) ([]byte, error) {
	return json.Marshal(document{
		Title:       item.Title,
		Description: item.Description,
		Status:      item.Status,
		AssigneeID:  item.AssigneeID,
		CustomerID:  item.CustomerID,
	})
}

// Insert stores a new item.
func (r *Repository) Insert(ctx context.Context, item Item) (Item, error) {
	doc, err := toDocument(item)
	if err != nil {
		return Item{}, fmt.Errorf("workitems: encode: %w", err)
	}
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (id, doc, created_by)
VALUES ($1, $2::jsonb, $3)
RETURNING id, doc, created_by, created_at, updated_at`, r.table), item.ID, string(doc), item.CreatedBy)
	created, err := scanItem(row)
	if err != nil {
		return Item{}, db.Unavailable(err)
	}
	return created, nil
}

// Get loads an item by id.
func (r *Repository) Get(ctx context.Context, id string) (Item, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT id, doc, created_by, created_at, updated_at FROM %s WHERE id = $1`, r.table), id)
	item, err := scanItem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, db.Unavailable(err)
	}
	return item, nil
}

// List returns items newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Item, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, doc, created_by, created_at, updated_at FROM %s
ORDER BY created_at DESC LIMIT $1`, r.table), limit)
	if err != nil {
		return nil, db.Unavailable(err)
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Unavailable(err)
	}
	return out, nil
}

// Update replaces the document of an item.
func (r *Repository) Update(ctx context.Context, item Item) (Item, error) {
	doc, err := toDocument(item)
	if err != nil {
		return Item{}, fmt.Errorf("workitems: encode: %w", err)
	}
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`UPDATE %s SET doc = $2::jsonb, updated_at = NOW() WHERE id = $1
RETURNING id, doc, created_by, created_at, updated_at`, r.table), item.ID, string(doc))
	updated, err := scanItem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, db.Unavailable(err)
	}
	return updated, nil
}

// Delete removes an item.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return db.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item Item
		raw  []byte
		doc  document
	)
	if err := row.Scan(&item.ID, &raw, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Item{}, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Item{}, fmt.Errorf("workitems: decode: %w", err)
	}
	item.Title = doc.Title
	item.Description = doc.Description
	item.Status = doc.Status
	item.AssigneeID = doc.AssigneeID
	item.CustomerID = doc.CustomerID
	return item, nil
}
