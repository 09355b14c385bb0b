package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPGStore(db), mock, func() { db.Close() }
}

func TestPGCreateUserMapsUniqueViolation(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("insert into users").
		WithArgs("alice", sqlmock.AnyArg(), "user", nil).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Users(context.Background()).Create(context.Background(), &User{
		Username:     "alice",
		PasswordHash: "hash",
		Role:         RoleUser,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindUserNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("select .* from users where id=").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Users(context.Background()).Find(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGDeleteUserNotFoundWhenNoRows(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("delete from users where id=").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Users(context.Background()).Delete(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGConsumeSpentTokenFails(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("update password_reset_tokens set used_at").
		WithArgs("tok-1", now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.ResetTokens(context.Background()).Consume(context.Background(), "tok-1", now, "newhash")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGConsumeFlipsTokenAndPassword(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("update password_reset_tokens set used_at").
		WithArgs("tok-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
	mock.ExpectExec("update users set password_hash").
		WithArgs(int64(42), "newhash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ResetTokens(context.Background()).Consume(context.Background(), "tok-1", now, "newhash")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGListUsers(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "email", "created_at", "updated_at"}).
		AddRow(int64(1), "alice", "hash1", "user", "alice@example.org", now, now).
		AddRow(int64(2), "bob", "hash2", "admin", "", now, now)
	mock.ExpectQuery("select .* from users order by id asc").WillReturnRows(rows)

	users, err := store.Users(context.Background()).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Role != RoleAdmin {
		t.Fatalf("unexpected users: %+v", users)
	}
}
