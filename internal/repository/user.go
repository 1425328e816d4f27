package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/multiplayers/arena/internal/domain"
)

const userColumns = `id, username, email, password_hash, is_active, role, user_status,
	google_id, facebook_id, apple_id, mobile_number, is_mobile_verified,
	kyc_document_type, kyc_document_number, kyc_document_url, is_kyc_verified, kyc_verified_at,
	referral_code, referred_by, is_deleted, deleted_at,
	created_at, last_login_at, last_login_ip, last_login_device`

// PgUserRepository implements UserRepository using pgx.
type PgUserRepository struct{}

// NewPgUserRepository creates a new PgUserRepository.
func NewPgUserRepository() *PgUserRepository {
	return &PgUserRepository{}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &role, &u.Status,
		&u.GoogleID, &u.FacebookID, &u.AppleID, &u.MobileNumber, &u.MobileVerified,
		&u.KycDocumentType, &u.KycDocumentNumber, &u.KycDocumentURL, &u.KycVerified, &u.KycVerifiedAt,
		&u.ReferralCode, &u.ReferredBy, &u.Deleted, &u.DeletedAt,
		&u.CreatedAt, &u.LastLoginAt, &u.LastLoginIP, &u.LastLoginDevice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

// FindByID returns a user by primary id, or nil if not found.
func (r *PgUserRepository) FindByID(ctx context.Context, db DBTX, id int64) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByGoogleID returns a user by Google subject id, or nil if not found.
func (r *PgUserRepository) FindByGoogleID(ctx context.Context, db DBTX, googleID string) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	return scanUser(row)
}

// List returns users ordered by created_at DESC.
func (r *PgUserRepository) List(ctx context.Context, db DBTX, includeDeleted bool) ([]domain.User, error) {
	rows, err := db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE ($1 OR NOT is_deleted) ORDER BY created_at DESC`,
		includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts a new user, filling in the store-assigned id and creation
// timestamp. The unique indexes on email and username close the
// check-then-act race: a concurrent duplicate insert loses here and surfaces
// as a Conflict.
func (r *PgUserRepository) Create(ctx context.Context, db DBTX, u *domain.User) error {
	err := db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_active, role, user_status,
			google_id, facebook_id, apple_id, mobile_number, is_mobile_verified,
			kyc_document_type, kyc_document_number, kyc_document_url, is_kyc_verified, kyc_verified_at,
			referral_code, referred_by, last_login_at, last_login_ip, last_login_device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash, u.Active, string(u.Role), u.Status,
		u.GoogleID, u.FacebookID, u.AppleID, u.MobileNumber, u.MobileVerified,
		u.KycDocumentType, u.KycDocumentNumber, u.KycDocumentURL, u.KycVerified, u.KycVerifiedAt,
		u.ReferralCode, u.ReferredBy, u.LastLoginAt, u.LastLoginIP, u.LastLoginDevice,
	).Scan(&u.ID, &u.CreatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		return conflictFor(constraint)
	}
	return err
}

// Update rewrites all mutable columns of the row.
func (r *PgUserRepository) Update(ctx context.Context, db DBTX, u *domain.User) error {
	tag, err := db.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4, is_active = $5,
			role = $6, user_status = $7, google_id = $8, facebook_id = $9, apple_id = $10,
			mobile_number = $11, is_mobile_verified = $12,
			kyc_document_type = $13, kyc_document_number = $14, kyc_document_url = $15,
			referral_code = $16, referred_by = $17
		WHERE id = $1 AND NOT is_deleted`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Active,
		string(u.Role), u.Status, u.GoogleID, u.FacebookID, u.AppleID,
		u.MobileNumber, u.MobileVerified,
		u.KycDocumentType, u.KycDocumentNumber, u.KycDocumentURL,
		u.ReferralCode, u.ReferredBy)
	if constraint, ok := uniqueViolation(err); ok {
		return conflictFor(constraint)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", strconv.FormatInt(u.ID, 10))
	}
	return nil
}

// EmailTaken reports whether another user already holds the email.
func (r *PgUserRepository) EmailTaken(ctx context.Context, db DBTX, email string, excludeID int64) (bool, error) {
	var taken bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		email, excludeID).Scan(&taken)
	return taken, err
}

// UsernameTaken reports whether another user already holds the username.
func (r *PgUserRepository) UsernameTaken(ctx context.Context, db DBTX, username string, excludeID int64) (bool, error) {
	var taken bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		username, excludeID).Scan(&taken)
	return taken, err
}

// SoftDelete flags the row deleted; the row itself is never removed.
func (r *PgUserRepository) SoftDelete(ctx context.Context, db DBTX, id int64, at time.Time) error {
	tag, err := db.Exec(ctx,
		`UPDATE users SET is_deleted = true, deleted_at = $2 WHERE id = $1 AND NOT is_deleted`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// ApproveKyc marks the user's KYC verified.
func (r *PgUserRepository) ApproveKyc(ctx context.Context, db DBTX, id int64, at time.Time) error {
	tag, err := db.Exec(ctx,
		`UPDATE users SET is_kyc_verified = true, kyc_verified_at = $2 WHERE id = $1 AND NOT is_deleted`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential.
func (r *PgUserRepository) UpdatePasswordHash(ctx context.Context, db DBTX, id int64, hash string) error {
	tag, err := db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1 AND NOT is_deleted`,
		id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// TouchLogin stamps last-login metadata. Blank IP/device arguments keep the
// previously stored values.
func (r *PgUserRepository) TouchLogin(ctx context.Context, db DBTX, id int64, at time.Time, ip, device string) error {
	_, err := db.Exec(ctx, `
		UPDATE users SET last_login_at = $2,
			last_login_ip = CASE WHEN $3 = '' THEN last_login_ip ELSE $3 END,
			last_login_device = CASE WHEN $4 = '' THEN last_login_device ELSE $4 END
		WHERE id = $1`,
		id, at, ip, device)
	return err
}

func conflictFor(constraint string) error {
	switch constraint {
	case "users_username_key":
		return domain.ErrConflict("username already exists")
	case "users_email_key":
		return domain.ErrConflict("email already exists")
	}
	return domain.ErrConflict("duplicate value for " + constraint)
}
