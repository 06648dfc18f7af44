package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/realtivo/internal/models"
	"github.com/lib/pq"
)

// PostgresTagRepository stores the tag catalog and lead/tag links.
type PostgresTagRepository struct {
	DB *sql.DB
}

// NewPostgresTagRepository creates a new PostgresTagRepository.
func NewPostgresTagRepository(db *sql.DB) *PostgresTagRepository {
	return &PostgresTagRepository{DB: db}
}

func (r *PostgresTagRepository) queryTags(ctx context.Context, op, query string, args ...any) ([]models.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tags, nil
}

// ListAll returns the whole tag catalog ordered by name.
func (r *PostgresTagRepository) ListAll(ctx context.Context) ([]models.Tag, error) {
	return r.queryTags(ctx, "ListTags", `SELECT id, name, color FROM tags ORDER BY name`)
}

// ListForLead returns the tags attached to a lead ordered by name.
func (r *PostgresTagRepository) ListForLead(ctx context.Context, leadID string) ([]models.Tag, error) {
	return r.queryTags(ctx, "ListLeadTags", `
		SELECT t.id, t.name, t.color
		  FROM tags t JOIN lead_tags lt ON lt.tag_id = t.id
		 WHERE lt.lead_id = $1
		 ORDER BY t.name
	`, leadID)
}

// Get fetches one tag by ID.
func (r *PostgresTagRepository) Get(ctx context.Context, id string) (*models.Tag, error) {
	var t models.Tag
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, color FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Color)
	if err != nil {
		return nil, fmt.Errorf("GetTag: %w", err)
	}
	return &t, nil
}

// Ensure returns the tag called t.Name, creating it from t when missing.
func (r *PostgresTagRepository) Ensure(ctx context.Context, t models.Tag) (*models.Tag, error) {
	var out models.Tag
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO tags (id, name, color) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, color
	`, t.ID, t.Name, t.Color).Scan(&out.ID, &out.Name, &out.Color)
	if err != nil {
		return nil, fmt.Errorf("EnsureTag: %w", err)
	}
	return &out, nil
}

// Attach links tagIDs to a lead. Existing links are kept.
func (r *PostgresTagRepository) Attach(ctx context.Context, leadID string, tagIDs ...string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO lead_tags (lead_id, tag_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, leadID, pq.Array(tagIDs))
	if err != nil {
		return fmt.Errorf("AttachTags: %w", err)
	}
	return nil
}

// Detach unlinks one tag from a lead.
func (r *PostgresTagRepository) Detach(ctx context.Context, leadID, tagID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM lead_tags WHERE lead_id = $1 AND tag_id = $2`, leadID, tagID)
	if err != nil {
		return fmt.Errorf("DetachTag: %w", err)
	}
	return requireRow(res, "DetachTag")
}
