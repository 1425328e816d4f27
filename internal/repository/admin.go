package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/multiplayers/arena/internal/domain"
)

const adminColumns = `id, email, username, role, password_hash, is_active, is_deleted,
	created_at, last_login_at, otp_code, otp_expiry`

// PgAdminRepository implements AdminRepository using pgx.
type PgAdminRepository struct{}

// NewPgAdminRepository creates a new PgAdminRepository.
func NewPgAdminRepository() *PgAdminRepository {
	return &PgAdminRepository{}
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	a := &domain.Admin{}
	var role string
	err := row.Scan(&a.ID, &a.Email, &a.Username, &role, &a.PasswordHash, &a.Active, &a.Deleted,
		&a.CreatedAt, &a.LastLoginAt, &a.OtpCode, &a.OtpExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return a, nil
}

// FindActiveByEmail returns an active, non-deleted admin by email, or nil.
func (r *PgAdminRepository) FindActiveByEmail(ctx context.Context, db DBTX, email string) (*domain.Admin, error) {
	row := db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1 AND is_active AND NOT is_deleted`,
		email)
	return scanAdmin(row)
}

// FindByID returns an admin by primary id, or nil if not found.
func (r *PgAdminRepository) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Admin, error) {
	row := db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

// SetOTP stores a pending challenge, overwriting any prior one. At most one
// challenge is live per admin.
func (r *PgAdminRepository) SetOTP(ctx context.Context, db DBTX, id int64, code string, expiry time.Time) error {
	tag, err := db.Exec(ctx,
		`UPDATE admins SET otp_code = $2, otp_expiry = $3 WHERE id = $1`,
		id, code, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("admin", "")
	}
	return nil
}

// ConsumeOTP clears the challenge and stamps last_login_at in a single
// conditional UPDATE. The row predicate makes verify-then-clear atomic: of
// two concurrent verifies only one matches a non-null code, and a replay
// after success matches nothing.
func (r *PgAdminRepository) ConsumeOTP(ctx context.Context, db DBTX, id int64, code string, now time.Time) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE admins SET otp_code = NULL, otp_expiry = NULL, last_login_at = $3
		WHERE id = $1 AND otp_code = $2 AND otp_expiry > $3`,
		id, code, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
