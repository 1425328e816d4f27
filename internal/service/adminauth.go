package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/repository"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LoginGuard throttles repeated failed logins.
type LoginGuard interface {
	CheckLocked(ctx context.Context, email, realm string) error
	RecordAttempt(ctx context.Context, email, realm, ip string, success bool)
}

// AdminAuthService implements the two-step admin login: password check plus
// emailed OTP, then token issuance.
type AdminAuthService struct {
	db      repository.Pool
	admins  repository.AdminRepository
	otp     *OTPManager
	mailer  Mailer
	jwtMgr  *auth.JWTManager
	lockout LoginGuard
	audit   *Auditor
	logger  *slog.Logger
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(
	db repository.Pool,
	admins repository.AdminRepository,
	otp *OTPManager,
	mailer Mailer,
	jwtMgr *auth.JWTManager,
	lockout LoginGuard,
	audit *Auditor,
	logger *slog.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		db:      db,
		admins:  admins,
		otp:     otp,
		mailer:  mailer,
		jwtMgr:  jwtMgr,
		lockout: lockout,
		audit:   audit,
		logger:  logger,
	}
}

// AdminLoginInput holds the step-1 login request fields.
type AdminLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminVerifyInput holds the step-2 verification fields.
type AdminVerifyInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// AdminAuthResult is returned on successful 2FA verification.
type AdminAuthResult struct {
	Token string        `json:"token"`
	Admin *domain.Admin `json:"admin"`
}

// Login is step 1: verify the password, issue an OTP, and email it. No
// token is returned; the caller must complete Verify2FA. The 401 message is
// identical for unknown accounts and wrong passwords so callers cannot probe
// which emails exist.
func (s *AdminAuthService) Login(ctx context.Context, input AdminLoginInput, meta domain.RequestMeta) error {
	if input.Email == "" || input.Password == "" {
		return domain.ErrValidation("email and password are required")
	}

	if err := s.lockout.CheckLocked(ctx, input.Email, string(auth.RealmAdmin)); err != nil {
		return err
	}

	admin, err := s.admins.FindActiveByEmail(ctx, s.db, input.Email)
	if err != nil {
		return domain.ErrInternal("find admin", err)
	}
	if admin == nil || !auth.VerifyPassword(input.Password, admin.PasswordHash) {
		s.lockout.RecordAttempt(ctx, input.Email, string(auth.RealmAdmin), meta.IP, false)
		if admin != nil {
			s.recordAudit(ctx, admin.ID, domain.EventAdminLoginFailed, map[string]string{"ip": meta.IP})
		}
		return domain.ErrUnauthorized("invalid credentials")
	}

	code, err := s.otp.Issue(ctx, s.db, admin.ID)
	if err != nil {
		return domain.ErrInternal("issue otp", err)
	}

	// The admin cannot complete login without this mail, so a delivery
	// failure fails the whole operation.
	if err := s.mailer.Send(ctx, admin.Email, "Your Admin 2FA Code", "Your admin 2FA code is: "+code); err != nil {
		return domain.ErrExternal("could not deliver 2FA code", err)
	}

	s.lockout.RecordAttempt(ctx, input.Email, string(auth.RealmAdmin), meta.IP, true)
	s.recordAudit(ctx, admin.ID, domain.EventAdminOTPIssued, map[string]string{"ip": meta.IP})
	return nil
}

// Verify2FA is step 2: consume the emailed code and issue the admin token.
func (s *AdminAuthService) Verify2FA(ctx context.Context, input AdminVerifyInput) (*AdminAuthResult, error) {
	if input.Email == "" || input.Code == "" {
		return nil, domain.ErrValidation("email and code are required")
	}

	admin, err := s.admins.FindActiveByEmail(ctx, s.db, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find admin", err)
	}
	if admin == nil {
		return nil, domain.ErrUnauthorized("invalid email")
	}

	ok, err := s.otp.Verify(ctx, s.db, admin.ID, input.Code)
	if err != nil {
		return nil, domain.ErrInternal("verify otp", err)
	}
	if !ok {
		return nil, domain.ErrUnauthorized("invalid or expired 2FA code")
	}

	token, err := s.jwtMgr.GenerateToken(auth.RealmAdmin, admin.ID, admin.Email, admin.Role, admin.Username)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	s.recordAudit(ctx, admin.ID, domain.EventAdminOTPVerified, nil)
	s.recordAudit(ctx, admin.ID, domain.EventAdminLoginSucceeded, nil)

	return &AdminAuthResult{Token: token, Admin: admin}, nil
}

// Me returns the profile for an authenticated admin id. NotFound when the
// admin has since been deactivated or soft-deleted.
func (s *AdminAuthService) Me(ctx context.Context, adminID int64) (*domain.Admin, error) {
	admin, err := s.admins.FindByID(ctx, s.db, adminID)
	if err != nil {
		return nil, domain.ErrInternal("find admin", err)
	}
	if admin == nil || !admin.Active || admin.Deleted {
		return nil, domain.ErrNotFound("admin", strconv.FormatInt(adminID, 10))
	}
	return admin, nil
}

// Audit delivery is best-effort on the login path; a full outbox must not
// lock admins out.
func (s *AdminAuthService) recordAudit(ctx context.Context, adminID int64, evt domain.EventType, payload interface{}) {
	id := strconv.FormatInt(adminID, 10)
	if err := s.audit.Record(ctx, s.db, domain.AggregateAdmin, id, evt, payload); err != nil {
		s.logger.Warn("record audit event", "event", evt, "admin_id", id, "error", err)
	}
}
