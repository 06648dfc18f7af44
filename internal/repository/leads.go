package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/realtivo/internal/models"
)

const leadColumns = `id, name, email, phone, content, status, follow_up_date, created_at, updated_at`

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostgresLeadRepository implements lead storage against a PostgreSQL database.
// Soft-deleted leads are invisible to every method.
type PostgresLeadRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresLeadRepository creates a new PostgresLeadRepository using the provided *sql.DB.
func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (models.Lead, error) {
	var (
		l        models.Lead
		followUp sql.NullTime
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Content, &l.Status, &followUp, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return l, err
	}
	if followUp.Valid {
		l.FollowUpDate = followUp.Time.UTC().Format(time.RFC3339)
	}
	return l, nil
}

// followUpValue converts the wire follow-up date into a nullable column value.
// Unparseable values are stored as NULL.
func followUpValue(s string) sql.NullTime {
	t, ok := models.ParseFollowUp(s)
	return sql.NullTime{Time: t, Valid: ok}
}

// List returns the leads matching q, newest first.
//
// Search matches name, email, phone and content case-insensitively.
func (r *PostgresLeadRepository) List(ctx context.Context, q models.LeadQuery) ([]models.Lead, error) {
	var (
		where = []string{"deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Status != "" {
		where = append(where, "status = "+arg(q.Status))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p := arg("%" + likeEscaper.Replace(s) + "%")
		where = append(where, fmt.Sprintf(`(name ILIKE %[1]s ESCAPE '\' OR email ILIKE %[1]s ESCAPE '\' OR phone ILIKE %[1]s ESCAPE '\' OR content ILIKE %[1]s ESCAPE '\')`, p))
	}
	query := "SELECT " + leadColumns + " FROM leads WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListLeads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLeads: %w", err)
	}
	return leads, nil
}

// Get retrieves a single lead by ID.
func (r *PostgresLeadRepository) Get(ctx context.Context, id string) (*models.Lead, error) {
	l, err := scanLead(r.DB.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE id = $1 AND deleted_at IS NULL", id))
	if err != nil {
		return nil, fmt.Errorf("GetLead: %w", err)
	}
	return &l, nil
}

// Create inserts l as given; the caller assigns ID and timestamps.
func (r *PostgresLeadRepository) Create(ctx context.Context, l models.Lead) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, content, status, follow_up_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.Name, l.Email, l.Phone, l.Content, l.Status, followUpValue(l.FollowUpDate), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateLead: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of the lead with l.ID.
func (r *PostgresLeadRepository) Update(ctx context.Context, l models.Lead) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE leads
		   SET name = $2, email = $3, phone = $4, content = $5, status = $6,
		       follow_up_date = $7, updated_at = $8
		 WHERE id = $1 AND deleted_at IS NULL
	`, l.ID, l.Name, l.Email, l.Phone, l.Content, l.Status, followUpValue(l.FollowUpDate), l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("UpdateLead: %w", err)
	}
	return requireRow(res, "UpdateLead")
}

// SoftDelete marks the lead deleted at the given time. The cleaner removes
// it for good after the retention period.
func (r *PostgresLeadRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE leads SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("DeleteLead: %w", err)
	}
	return requireRow(res, "DeleteLead")
}

// requireRow turns a statement that touched nothing into sql.ErrNoRows.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
