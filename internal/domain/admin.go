package domain

import "time"

// Admin represents an admins row: a back-office account that authenticates
// with password + emailed OTP.
type Admin struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`

	Active  bool `json:"is_active"`
	Deleted bool `json:"is_deleted"`

	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Pending 2FA challenge. A non-nil code always has a non-nil expiry;
	// both are cleared together on successful verification.
	OtpCode   *string    `json:"-"`
	OtpExpiry *time.Time `json:"-"`
}

// OTPValidity is the window during which an issued 2FA code is accepted.
const OTPValidity = 5 * time.Minute
