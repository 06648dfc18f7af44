package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/realtivo/internal/models"
)

// PostgresNoteRepository stores lead notes.
type PostgresNoteRepository struct {
	DB *sql.DB
}

// NewPostgresNoteRepository creates a new PostgresNoteRepository.
func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{DB: db}
}

// List returns the notes of a lead, oldest first.
func (r *PostgresNoteRepository) List(ctx context.Context, leadID string) ([]models.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lead_id, content, created_at FROM notes WHERE lead_id = $1 ORDER BY created_at
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("ListNotes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListNotes: %w", err)
	}
	return notes, nil
}

// Add inserts n.
func (r *PostgresNoteRepository) Add(ctx context.Context, n models.Note) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notes (id, lead_id, content, created_at) VALUES ($1, $2, $3, $4)`,
		n.ID, n.LeadID, n.Content, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("AddNote: %w", err)
	}
	return nil
}

// Delete removes a note of the given lead.
func (r *PostgresNoteRepository) Delete(ctx context.Context, leadID, noteID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND lead_id = $2`, noteID, leadID)
	if err != nil {
		return fmt.Errorf("DeleteNote: %w", err)
	}
	return requireRow(res, "DeleteNote")
}
