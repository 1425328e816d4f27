package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/multiplayers/arena/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Pool is the request-scoped store handle services run against: plain
// queries plus transaction control. *pgxpool.Pool satisfies it.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository provides access to the users table. Lookups return the row
// regardless of soft-delete state; callers decide visibility.
type UserRepository interface {
	// FindByID returns a user by primary id, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.User, error)

	// FindByGoogleID returns a user by Google subject id, or nil if absent.
	FindByGoogleID(ctx context.Context, db DBTX, googleID string) (*domain.User, error)

	// List returns users ordered by created_at DESC, optionally including
	// soft-deleted rows.
	List(ctx context.Context, db DBTX, includeDeleted bool) ([]domain.User, error)

	// Create inserts a new user and fills in the store-assigned id.
	// Duplicate email or username surfaces as domain.ErrConflict.
	Create(ctx context.Context, db DBTX, u *domain.User) error

	// Update rewrites all mutable columns of the row.
	Update(ctx context.Context, db DBTX, u *domain.User) error

	// EmailTaken reports whether another user already holds the email.
	EmailTaken(ctx context.Context, db DBTX, email string, excludeID int64) (bool, error)

	// UsernameTaken reports whether another user already holds the username.
	UsernameTaken(ctx context.Context, db DBTX, username string, excludeID int64) (bool, error)

	// SoftDelete flags the row deleted. NotFound when absent or already deleted.
	SoftDelete(ctx context.Context, db DBTX, id int64, at time.Time) error

	// ApproveKyc marks the user's KYC verified. NotFound when absent or deleted.
	ApproveKyc(ctx context.Context, db DBTX, id int64, at time.Time) error

	// UpdatePasswordHash replaces the stored credential. NotFound when absent
	// or deleted.
	UpdatePasswordHash(ctx context.Context, db DBTX, id int64, hash string) error

	// TouchLogin stamps last-login metadata, preserving the prior IP/device
	// when the new values are blank.
	TouchLogin(ctx context.Context, db DBTX, id int64, at time.Time, ip, device string) error
}

// AdminRepository provides access to the admins table and the embedded OTP
// challenge columns.
type AdminRepository interface {
	// FindActiveByEmail returns an active, non-deleted admin by email, or nil.
	FindActiveByEmail(ctx context.Context, db DBTX, email string) (*domain.Admin, error)

	// FindByID returns an admin by primary id, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Admin, error)

	// SetOTP stores a pending challenge, overwriting any prior one.
	SetOTP(ctx context.Context, db DBTX, id int64, code string, expiry time.Time) error

	// ConsumeOTP atomically clears the challenge and stamps last_login_at,
	// but only when the stored code matches and has not expired. Returns
	// whether the challenge was consumed; a concurrent or repeated verify
	// finds the code already cleared and gets false.
	ConsumeOTP(ctx context.Context, db DBTX, id int64, code string, now time.Time) (bool, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// mutation where one exists).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// MarkPublished removes published events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
