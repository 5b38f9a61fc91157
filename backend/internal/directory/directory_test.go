package directory

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"pactly/backend/pkg/errors"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE User (
		user_id TEXT PRIMARY KEY,
		username TEXT,
		firstname TEXT,
		lastname TEXT,
		location TEXT
	);
	INSERT INTO User VALUES
		('u1', 'asdale2', 'Alex', 'Dale', 'Urbana, IL'),
		('u2', 'bmonroe', 'Bea', 'Monroe', NULL),
		('u3', 'charans2', 'Chandra', 'Narayanan', 'Chicago, IL');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return NewDirectory(db)
}

func TestFindByUserID(t *testing.T) {
	dir := newTestDirectory(t)

	p, err := dir.FindByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByUserID failed: %v", err)
	}
	if p.Username != "asdale2" || p.FirstName != "Alex" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestFindByUserID_NullLocation(t *testing.T) {
	dir := newTestDirectory(t)

	p, err := dir.FindByUserID(context.Background(), "u2")
	if err != nil {
		t.Fatalf("FindByUserID failed: %v", err)
	}
	if p.Location != "" {
		t.Errorf("expected empty location, got %q", p.Location)
	}
}

func TestFindByUserID_NotFound(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.FindByUserID(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for an unknown id")
	}
	if !errors.IsErrorType(err, errors.ErrorTypeNotFound) {
		t.Errorf("expected a not-found error, got %T", err)
	}
}

func TestGetManyByIDs_PreservesOrderAndSkipsUnknown(t *testing.T) {
	dir := newTestDirectory(t)

	profiles, err := dir.GetManyByIDs(context.Background(), []string{"u3", "ghost", "u1"})
	if err != nil {
		t.Fatalf("GetManyByIDs failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].UserID != "u3" || profiles[1].UserID != "u1" {
		t.Errorf("expected request order preserved, got %v", profiles)
	}
}

func TestGetManyByIDs_Empty(t *testing.T) {
	dir := newTestDirectory(t)

	profiles, err := dir.GetManyByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetManyByIDs failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected empty result, got %v", profiles)
	}
}
