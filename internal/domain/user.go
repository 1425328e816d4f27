package domain

import "time"

// User represents a users row: an end-user (player) account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	Active bool   `json:"is_active"`
	Role   Role   `json:"role"`
	Status string `json:"user_status"`

	// Social identity slots, one per provider.
	GoogleID   string `json:"google_id,omitempty"`
	FacebookID string `json:"facebook_id,omitempty"`
	AppleID    string `json:"apple_id,omitempty"`

	MobileNumber   string `json:"mobile_number,omitempty"`
	MobileVerified bool   `json:"is_mobile_verified"`

	KycDocumentType   string     `json:"kyc_document_type,omitempty"`
	KycDocumentNumber string     `json:"kyc_document_number,omitempty"`
	KycDocumentURL    string     `json:"kyc_document_url,omitempty"`
	KycVerified       bool       `json:"is_kyc_verified"`
	KycVerifiedAt     *time.Time `json:"kyc_verified_at,omitempty"`

	ReferralCode string `json:"referral_code,omitempty"`
	ReferredBy   string `json:"referred_by,omitempty"`

	Deleted   bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP     string     `json:"last_login_ip,omitempty"`
	LastLoginDevice string     `json:"last_login_device,omitempty"`
}

// Defaults for NOT NULL login-metadata columns when request metadata is
// unavailable.
const (
	UnknownIP     = "0.0.0.0"
	UnknownDevice = "Unknown"
)

// RequestMeta carries per-request client metadata attached to login events.
type RequestMeta struct {
	IP     string
	Device string
}

// OrUnknown fills blank fields with the NOT NULL column defaults.
func (m RequestMeta) OrUnknown() RequestMeta {
	if m.IP == "" {
		m.IP = UnknownIP
	}
	if m.Device == "" {
		m.Device = UnknownDevice
	}
	return m
}
