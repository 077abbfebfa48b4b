package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, phone, dob, email_verified,
		 verification_token_hash, otp_hash, otp_expires_at, created_at, updated_at`

// DBTX is the subset of database/sql the store uses. *sql.DB and *sql.Tx
// both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// Close closes the underlying handle when it is closable, such as a *sql.DB.
func (s *Store) Close() error {
	if c, ok := s.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec goAccount.UserRecord) error {
	query :=
		`INSERT INTO users (id, email, password_hash, name, phone, dob, email_verified,
		 verification_token_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Email, rec.PasswordHash, rec.Name, rec.Phone, rec.DOB, rec.EmailVerified,
		nullString(rec.VerificationTokenHash), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return goAccount.ErrDuplicateIdentity
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (goAccount.UserRecord, error) {
	query := `SELECT ` + userColumns + `
		 FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (goAccount.UserRecord, error) {
	query := `SELECT ` + userColumns + `
		 FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// ConsumeVerificationToken verifies and clears in one statement, so a token
// can be consumed at most once even under concurrent requests.
func (s *Store) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (goAccount.UserRecord, error) {
	query :=
		`UPDATE users SET email_verified = TRUE, verification_token_hash = NULL, updated_at = $2
		 WHERE verification_token_hash = $1
		 RETURNING ` + userColumns
	return scanUser(s.db.QueryRowContext(ctx, query, tokenHash, now))
}

func (s *Store) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET otp_hash = $2, otp_expires_at = $3
		 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, otpHash, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (s *Store) ClearOTP(ctx context.Context, id, otpHash string) (bool, error) {
	query :=
		`UPDATE users SET otp_hash = NULL, otp_expires_at = NULL
		 WHERE id = $1 AND otp_hash = $2`

	res, err := s.db.ExecContext(ctx, query, id, otpHash)
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
	query :=
		`UPDATE users SET name = COALESCE($2, name), phone = COALESCE($3, phone),
		 dob = COALESCE($4, dob), updated_at = $5
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(s.db.QueryRowContext(ctx, query,
		id, optional(patch.Name), optional(patch.Phone), optional(patch.DOB), now))
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = $3
		 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, hash, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func scanUser(row *sql.Row) (goAccount.UserRecord, error) {
	var (
		rec        goAccount.UserRecord
		tokenHash  sql.NullString
		otpHash    sql.NullString
		otpExpires sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Name, &rec.Phone, &rec.DOB,
		&rec.EmailVerified, &tokenHash, &otpHash, &otpExpires, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
		}
		return goAccount.UserRecord{}, fmt.Errorf("db error: %w", err)
	}
	rec.VerificationTokenHash = tokenHash.String
	rec.OTPHash = otpHash.String
	if otpExpires.Valid {
		rec.OTPExpiresAt = otpExpires.Time
	}
	return rec, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return goAccount.ErrRecordNotFound
	}
	return nil
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
