package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"netventure.org/internal/persist"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestLoad(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select value from nv_blobs where key").WithArgs("nv_children").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	got, err := s.Load(context.Background(), persist.KeyRoster)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "[]" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select value from nv_blobs").WillReturnError(sql.ErrNoRows)

	if _, err := s.Load(context.Background(), persist.KeyLedger); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadBackendError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select value from nv_blobs").WillReturnError(errors.New("conn reset"))

	if _, err := s.Load(context.Background(), persist.KeyLedger); !errors.Is(err, persist.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestSaveWritesHistory(t *testing.T) {
	s, mock := newMock(t)
	s.WithHistoryDepth(3)
	data := []byte(`{"id":"school_default"}`)

	mock.ExpectBegin()
	mock.ExpectExec("insert into nv_blobs").WithArgs("nv_school_vault", data).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into nv_blob_history").WithArgs("nv_school_vault", data).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("delete from nv_blob_history").WithArgs("nv_school_vault", 3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := s.Save(context.Background(), persist.KeyCatalog, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveWithoutHistory(t *testing.T) {
	s, mock := newMock(t)
	s.WithHistoryDepth(0)

	mock.ExpectBegin()
	mock.ExpectExec("insert into nv_blobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Save(context.Background(), persist.KeyRoster, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into nv_blobs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), persist.KeyRoster, []byte(`[]`))
	if !errors.Is(err, persist.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRevisionsAndRollback(t *testing.T) {
	s, mock := newMock(t)
	s.WithHistoryDepth(0)
	now := time.Now()

	mock.ExpectQuery("select id, value, saved_at from nv_blob_history").WithArgs("nv_completions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "saved_at"}).
			AddRow(int64(7), []byte(`[2]`), now).
			AddRow(int64(5), []byte(`[1]`), now.Add(-time.Minute)))
	mock.ExpectQuery("select value from nv_blob_history").WithArgs("nv_completions", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[1]`)))
	mock.ExpectBegin()
	mock.ExpectExec("insert into nv_blobs").WithArgs("nv_completions", []byte(`[1]`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	revs, err := s.Revisions(ctx, persist.KeyLedger)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].ID != 7 {
		t.Fatalf("unexpected revisions %+v", revs)
	}
	if err := s.Rollback(ctx, persist.KeyLedger, 5); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
