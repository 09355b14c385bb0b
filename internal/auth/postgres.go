package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context.Context) UserStore { return &pgUserStore{db: s.db} }
func (s *PGStore) ResetTokens(context.Context) ResetTokenStore {
	return &pgResetTokenStore{db: s.db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------
type pgUserStore struct{ db *sql.DB }

const userColumns = `id, username, password_hash, role, coalesce(email, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	var email any
	if u.Email != "" {
		email = u.Email
	}
	err := s.db.QueryRowContext(ctx,
		`insert into users(username, password_hash, role, email)
		 values($1,$2,$3,$4)
		 returning id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.Role, email,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *pgUserStore) Find(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *pgUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username))
}

func (s *pgUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgUserStore) UpdateRole(ctx context.Context, id int64, role Role) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`update users set role=$2, updated_at=now() where id=$1
		 returning `+userColumns, id, role))
}

func (s *pgUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgUserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset token store --------------------------------------------------------
type pgResetTokenStore struct{ db *sql.DB }

func (s *pgResetTokenStore) Create(ctx context.Context, tok *ResetToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into password_reset_tokens(id, user_id, secret_hash, expires_at, created_at)
		 values($1,$2,$3,$4,$5)`,
		tok.ID, tok.UserID, tok.SecretHash, tok.ExpiresAt, tok.CreatedAt,
	)
	return err
}

func (s *pgResetTokenStore) Find(ctx context.Context, id string) (*ResetToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, secret_hash, expires_at, created_at, used_at
		 from password_reset_tokens where id=$1`, id)
	var (
		tok    ResetToken
		usedAt sql.NullTime
	)
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.SecretHash, &tok.ExpiresAt, &tok.CreatedAt, &usedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		tok.UsedAt = &t
	}
	return &tok, nil
}

// Consume flips the token unused->used with a single conditional update and
// replaces the owner's password hash in the same transaction. The where
// clause is the compare-and-swap: a spent or expired token matches no row.
func (s *pgResetTokenStore) Consume(ctx context.Context, id string, now time.Time, newPasswordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	err = tx.QueryRowContext(ctx,
		`update password_reset_tokens set used_at=$2
		 where id=$1 and used_at is null and expires_at > $2
		 returning user_id`,
		id, now,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=$3 where id=$1`,
		userID, newPasswordHash, now)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Owner deleted after the token was issued.
		return ErrInvalidResetToken
	}
	return tx.Commit()
}
