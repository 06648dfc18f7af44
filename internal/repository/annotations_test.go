package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/realtivo/internal/models"
)

func TestNotes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresNoteRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO notes").
		WithArgs("n1", "l1", "called", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notes WHERE lead_id = $1 ORDER BY created_at")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "content", "created_at"}).
			AddRow("n1", "l1", "called", now))
	mock.ExpectExec("DELETE FROM notes").
		WithArgs("n1", "l1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM notes").
		WithArgs("n1", "l1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Add(ctx, models.Note{ID: "n1", LeadID: "l1", Content: "called", CreatedAt: now}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	notes, err := repo.List(ctx, "l1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "called" {
		t.Errorf("List = %+v", notes)
	}
	if err := repo.Delete(ctx, "l1", "n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "l1", "n1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second Delete = %v; want sql.ErrNoRows", err)
	}
}

func TestTags_ListAndEnsure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTagRepository(db)
	ctx := context.Background()
	cols := []string{"id", "name", "color"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, color FROM tags ORDER BY name")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "vip", "#ef4444").AddRow("t2", "warm-intro", ""))
	mock.ExpectQuery("JOIN lead_tags").
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "vip", "#ef4444"))
	mock.ExpectQuery("INSERT INTO tags").
		WithArgs("new-id", "vip", "").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "vip", "#ef4444"))

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAll = %v, %v", all, err)
	}
	forLead, err := repo.ListForLead(ctx, "l1")
	if err != nil || len(forLead) != 1 {
		t.Fatalf("ListForLead = %v, %v", forLead, err)
	}
	tag, err := repo.Ensure(ctx, models.Tag{ID: "new-id", Name: "vip"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if tag.ID != "t1" {
		t.Errorf("Ensure returned %q; want the existing tag", tag.ID)
	}
}

func TestTags_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTagRepository(db)

	mock.ExpectQuery("FROM tags WHERE id").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v; want sql.ErrNoRows", err)
	}
}

func TestTags_AttachDetach(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTagRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO lead_tags").
		WithArgs("l1", pq.Array([]string{"t1", "t2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM lead_tags").
		WithArgs("l1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM lead_tags").
		WithArgs("l1", "t1").
		WillReturnError(errors.New("db fail"))

	if err := repo.Attach(ctx, "l1", "t1", "t2"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := repo.Detach(ctx, "l1", "t1"); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := repo.Detach(ctx, "l1", "t1"); err == nil {
		t.Fatal("expected Detach error")
	}
}
