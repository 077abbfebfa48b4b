package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

const userColumns = `id, email, password_hash, name, phone, dob, email_verified,
		verification_token_hash, otp_hash, otp_expires_at, created_at, updated_at`

type Store struct {
	db *sql.DB
}

// Open opens the database file at dsn and applies the schema. SQLite allows
// one writer at a time, so the pool is limited to a single connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// RunMigrations applies the embedded schema to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Create(ctx context.Context, rec goAccount.UserRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, phone, dob, email_verified,
		verification_token_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Email, rec.PasswordHash, rec.Name, rec.Phone, rec.DOB, rec.EmailVerified,
		nullString(rec.VerificationTokenHash), millis(rec.CreatedAt), millis(rec.UpdatedAt))
	if err != nil {
		if isUnique(err) {
			return goAccount.ErrDuplicateIdentity
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (goAccount.UserRecord, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (goAccount.UserRecord, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *Store) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (goAccount.UserRecord, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET email_verified = 1, verification_token_hash = NULL, updated_at = ?
		WHERE verification_token_hash = ?
		RETURNING `+userColumns,
		millis(now), tokenHash))
}

func (s *Store) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET otp_hash = ?, otp_expires_at = ? WHERE id = ?`,
		otpHash, millis(expiresAt), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goAccount.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ClearOTP(ctx context.Context, id, otpHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET otp_hash = NULL, otp_expires_at = NULL WHERE id = ? AND otp_hash = ?`,
		id, otpHash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch goAccount.ProfilePatch, now time.Time) (goAccount.UserRecord, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET name = COALESCE(?, name), phone = COALESCE(?, phone),
		dob = COALESCE(?, dob), updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		optional(patch.Name), optional(patch.Phone), optional(patch.DOB), millis(now), id))
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, millis(now), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goAccount.ErrRecordNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (goAccount.UserRecord, error) {
	var (
		rec                  goAccount.UserRecord
		tokenHash, otpHash   sql.NullString
		otpExpires           sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Name, &rec.Phone, &rec.DOB,
		&rec.EmailVerified, &tokenHash, &otpHash, &otpExpires, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
		}
		return goAccount.UserRecord{}, fmt.Errorf("db error: %w", err)
	}
	rec.VerificationTokenHash = tokenHash.String
	rec.OTPHash = otpHash.String
	if otpExpires.Valid {
		rec.OTPExpiresAt = time.UnixMilli(otpExpires.Int64).UTC()
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(se.Error(), "UNIQUE constraint failed")
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

var _ goAccount.UserStore = (*Store)(nil)
