package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/infra"
	"github.com/multiplayers/arena/internal/repository"
)

// UserService implements the admin-facing user lifecycle: create, update,
// soft-delete, KYC approval, and password reset.
type UserService struct {
	db           repository.Pool
	users        repository.UserRepository
	passwordMode string
	audit        *Auditor
	logger       *slog.Logger
	now          func() time.Time
}

// NewUserService creates a new UserService. passwordMode selects whether
// password fields arrive pre-hashed from the client or as plaintext the
// server hashes (infra.PasswordModePreHashed / infra.PasswordModePlaintext).
func NewUserService(
	db repository.Pool,
	users repository.UserRepository,
	passwordMode string,
	audit *Auditor,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		db:           db,
		users:        users,
		passwordMode: passwordMode,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

// UserInput holds the create/update request fields. Zero-valued optional
// fields are treated as absent on update.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`

	Active *bool  `json:"is_active,omitempty"`
	Role   string `json:"role,omitempty"`
	Status string `json:"user_status,omitempty"`

	GoogleID   string `json:"google_id,omitempty"`
	FacebookID string `json:"facebook_id,omitempty"`
	AppleID    string `json:"apple_id,omitempty"`

	MobileNumber   string `json:"mobile_number,omitempty"`
	MobileVerified bool   `json:"is_mobile_verified,omitempty"`

	KycDocumentType   string `json:"kyc_document_type,omitempty"`
	KycDocumentNumber string `json:"kyc_document_number,omitempty"`
	KycDocumentURL    string `json:"kyc_document_url,omitempty"`

	ReferralCode string `json:"referral_code,omitempty"`
	ReferredBy   string `json:"referred_by,omitempty"`
}

// Create validates the input and inserts a new user.
func (s *UserService) Create(ctx context.Context, input UserInput, meta domain.RequestMeta) (*domain.User, error) {
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	hash, err := s.resolveCredential(input.Password, true)
	if err != nil {
		return nil, err
	}

	role := domain.RolePlayer
	if input.Role != "" {
		role, err = domain.ParseRole(input.Role)
		if err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}

	// Friendly duplicate detection up front; the unique indexes settle any
	// race at insert time.
	if taken, err := s.users.EmailTaken(ctx, s.db, input.Email, 0); err != nil {
		return nil, domain.ErrInternal("check email", err)
	} else if taken {
		return nil, domain.ErrConflict("email already exists")
	}
	if taken, err := s.users.UsernameTaken(ctx, s.db, input.Username, 0); err != nil {
		return nil, domain.ErrInternal("check username", err)
	} else if taken {
		return nil, domain.ErrConflict("username already exists")
	}

	status := input.Status
	if status == "" {
		status = "Active"
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	filled := meta.OrUnknown()
	user := &domain.User{
		Username:          input.Username,
		Email:             input.Email,
		PasswordHash:      hash,
		Active:            active,
		Role:              role,
		Status:            status,
		GoogleID:          input.GoogleID,
		FacebookID:        input.FacebookID,
		AppleID:           input.AppleID,
		MobileNumber:      input.MobileNumber,
		MobileVerified:    input.MobileVerified,
		KycDocumentType:   input.KycDocumentType,
		KycDocumentNumber: input.KycDocumentNumber,
		KycDocumentURL:    input.KycDocumentURL,
		ReferralCode:      input.ReferralCode,
		ReferredBy:        input.ReferredBy,
		LastLoginIP:       filled.IP,
		LastLoginDevice:   filled.Device,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.users.Create(ctx, tx, user); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return nil, err
		}
		return nil, domain.ErrInternal("create user", err)
	}

	id := strconv.FormatInt(user.ID, 10)
	if err := s.audit.Record(ctx, tx, domain.AggregateUser, id, domain.EventUserCreated,
		map[string]string{"via": "admin"}); err != nil {
		return nil, domain.ErrInternal("record audit event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	return user, nil
}

// Update applies the input to an existing user. Uniqueness is re-checked
// only for fields that actually change.
func (s *UserService) Update(ctx context.Context, id int64, input UserInput) (*domain.User, error) {
	user, err := s.loadVisible(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != "" && input.Email != user.Email {
		if err := domain.ValidateEmail(input.Email); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		if taken, err := s.users.EmailTaken(ctx, s.db, input.Email, id); err != nil {
			return nil, domain.ErrInternal("check email", err)
		} else if taken {
			return nil, domain.ErrConflict("email already exists")
		}
		user.Email = input.Email
	}

	if input.Username != "" && input.Username != user.Username {
		if err := domain.ValidateUsername(input.Username); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		if taken, err := s.users.UsernameTaken(ctx, s.db, input.Username, id); err != nil {
			return nil, domain.ErrInternal("check username", err)
		} else if taken {
			return nil, domain.ErrConflict("username already exists")
		}
		user.Username = input.Username
	}

	if input.Password != "" {
		hash, err := s.resolveCredential(input.Password, false)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if input.Role != "" {
		role, err := domain.ParseRole(input.Role)
		if err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		user.Role = role
	}
	if input.Status != "" {
		user.Status = input.Status
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	user.GoogleID = input.GoogleID
	user.FacebookID = input.FacebookID
	user.AppleID = input.AppleID
	user.MobileNumber = input.MobileNumber
	user.MobileVerified = input.MobileVerified
	user.KycDocumentType = input.KycDocumentType
	user.KycDocumentNumber = input.KycDocumentNumber
	user.KycDocumentURL = input.KycDocumentURL
	user.ReferralCode = input.ReferralCode
	user.ReferredBy = input.ReferredBy

	if err := s.users.Update(ctx, s.db, user); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return nil, err
		}
		return nil, domain.ErrInternal("update user", err)
	}

	s.recordAudit(ctx, id, domain.EventUserUpdated)
	return user, nil
}

// SoftDelete flags a user deleted. The row survives.
func (s *UserService) SoftDelete(ctx context.Context, id int64) error {
	if err := s.users.SoftDelete(ctx, s.db, id, s.now()); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return err
		}
		return domain.ErrInternal("soft delete user", err)
	}
	s.recordAudit(ctx, id, domain.EventUserDeleted)
	return nil
}

// ApproveKyc marks a user's KYC documents verified.
func (s *UserService) ApproveKyc(ctx context.Context, id int64) error {
	if err := s.users.ApproveKyc(ctx, s.db, id, s.now()); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return err
		}
		return domain.ErrInternal("approve kyc", err)
	}
	s.recordAudit(ctx, id, domain.EventUserKycApproved)
	return nil
}

// ResetPassword replaces a user's stored credential. Malformed input is
// rejected before the row is touched.
func (s *UserService) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	hash, err := s.resolveCredential(newPassword, true)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, s.db, id, hash); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return err
		}
		return domain.ErrInternal("reset password", err)
	}
	s.recordAudit(ctx, id, domain.EventUserPasswordReset)
	return nil
}

// Get returns a user by id; soft-deleted rows are invisible.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.loadVisible(ctx, id)
}

// List returns users, optionally including soft-deleted rows.
func (s *UserService) List(ctx context.Context, includeDeleted bool) ([]domain.User, error) {
	users, err := s.users.List(ctx, s.db, includeDeleted)
	if err != nil {
		return nil, domain.ErrInternal("list users", err)
	}
	return users, nil
}

func (s *UserService) loadVisible(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil || user.Deleted {
		return nil, domain.ErrNotFound("user", strconv.FormatInt(id, 10))
	}
	return user, nil
}

// resolveCredential turns the password field into a stored hash according
// to the configured input policy.
func (s *UserService) resolveCredential(password string, required bool) (string, error) {
	if password == "" {
		if required {
			return "", domain.ErrValidation("password is required")
		}
		return "", nil
	}

	switch s.passwordMode {
	case infra.PasswordModePlaintext:
		hash, err := auth.HashPassword(password)
		if err != nil {
			return "", domain.ErrInternal("hash password", err)
		}
		return hash, nil
	default:
		if !domain.ValidStoredHash(password) {
			return "", domain.ErrValidation("password must be a hashed string in the format 'saltBase64:hashBase64'")
		}
		return password, nil
	}
}

func (s *UserService) recordAudit(ctx context.Context, userID int64, evt domain.EventType) {
	id := strconv.FormatInt(userID, 10)
	if err := s.audit.Record(ctx, s.db, domain.AggregateUser, id, evt, nil); err != nil {
		s.logger.Warn("record audit event", "event", evt, "user_id", id, "error", err)
	}
}
