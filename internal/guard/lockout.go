package guard

import (
	"context"
	"time"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/repository"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// LoginGuard tracks failed login attempts in the login_attempts table and
// locks an account after repeated failures.
type LoginGuard struct {
	db repository.DBTX
}

// NewLoginGuard creates a LoginGuard over the given store handle.
func NewLoginGuard(db repository.DBTX) *LoginGuard {
	return &LoginGuard{db: db}
}

// RecordAttempt inserts a login attempt row.
func (g *LoginGuard) RecordAttempt(ctx context.Context, email, realm, ip string, success bool) {
	_, _ = g.db.Exec(ctx, `
		INSERT INTO login_attempts (email, realm, ip_address, success)
		VALUES ($1, $2, $3, $4)`,
		email, realm, ip, success)
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// logins within the lockout window.
func (g *LoginGuard) CheckLocked(ctx context.Context, email, realm string) error {
	var count int
	err := g.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND realm = $2 AND success = false
		  AND created_at > $3`,
		email, realm, time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		// Fail open when the attempts table is unreachable.
		return nil
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
