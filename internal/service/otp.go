package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/repository"
)

// OTPManager issues and verifies the one-time codes used as the second
// factor of admin login. State lives on the admin row; issuing overwrites
// any pending challenge, so at most one code is live per admin.
type OTPManager struct {
	admins repository.AdminRepository
	rand   io.Reader
	now    func() time.Time
}

// NewOTPManager creates an OTP manager backed by the given randomness
// source. Production wiring passes crypto/rand.Reader.
func NewOTPManager(admins repository.AdminRepository, random io.Reader) *OTPManager {
	if random == nil {
		random = rand.Reader
	}
	return &OTPManager{admins: admins, rand: random, now: time.Now}
}

// Issue generates a uniformly random 6-digit code, stores it with a
// 5-minute expiry, and returns it for delivery.
func (m *OTPManager) Issue(ctx context.Context, db repository.DBTX, adminID int64) (string, error) {
	n, err := rand.Int(m.rand, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	expiry := m.now().Add(domain.OTPValidity)
	if err := m.admins.SetOTP(ctx, db, adminID, code, expiry); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify consumes the pending challenge. False when there is no pending
// code, the code mismatches, or the code has expired; expiry is checked
// against the stored timestamp, never against whether a later clear
// happened. The underlying conditional update makes the first of two
// concurrent verifies win and the second fail.
func (m *OTPManager) Verify(ctx context.Context, db repository.DBTX, adminID int64, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return m.admins.ConsumeOTP(ctx, db, adminID, code, m.now())
}
