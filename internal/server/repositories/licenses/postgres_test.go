package licenses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func licenseRows(active bool, userID string) *sqlmock.Rows {
	var activatedAt any
	if active {
		activatedAt = time.Now()
	}
	return sqlmock.NewRows([]string{"id", "key", "is_active", "user_id", "activated_at", "created_at"}).
		AddRow("l-1", "key-1", active, userID, activatedAt, time.Now())
}

func TestCreate_InsertsInactive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow("l-1", time.Now())
	mock.ExpectQuery(`INSERT\s+INTO\s+licenses\s*\(key,\s*is_active,\s*user_id\)`).
		WithArgs("key-1", "u-1").
		WillReturnRows(rows)

	got, err := repo.Create(context.Background(), &models.License{Key: "key-1", UserID: "u-1"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "l-1" || got.IsActive {
		t.Fatalf("unexpected license: %+v", got)
	}
}

func TestActivate_WinsWhenInactive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+licenses.*WHERE\s+key\s*=\s*\$1\s+AND\s+is_active\s*=\s*FALSE`).
		WithArgs("key-1", "u-2").
		WillReturnRows(licenseRows(true, "u-2"))

	got, err := repo.Activate(context.Background(), "key-1", "u-2")
	if err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	if !got.IsActive || got.UserID != "u-2" {
		t.Fatalf("unexpected license: %+v", got)
	}
	if got.ActivatedAt == nil {
		t.Fatalf("expected ActivatedAt to be set")
	}
}

func TestActivate_NoMatchableRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// Either the key does not exist or the license was already activated:
	// the CAS UPDATE matches nothing.
	mock.ExpectQuery(`UPDATE\s+licenses.*is_active\s*=\s*FALSE`).
		WithArgs("key-1", "u-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Activate(context.Background(), "key-1", "u-2")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestGetByKey_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*key.*WHERE\s+key\s*=\s*\$1`).
		WithArgs("key-1").
		WillReturnRows(licenseRows(false, "u-1"))

	got, err := repo.GetByKey(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("GetByKey error: %v", err)
	}
	if got.Key != "key-1" || got.IsActive {
		t.Fatalf("unexpected license: %+v", got)
	}
	if got.ActivatedAt != nil {
		t.Fatalf("inactive license must not carry ActivatedAt")
	}
}

func TestHasActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := repo.HasActive(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("HasActive error: %v", err)
	}
	if !active {
		t.Fatalf("expected active=true")
	}
}

func TestGetActiveByUser_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*key.*is_active`).
		WithArgs("u-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActiveByUser(context.Background(), "u-1")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}
