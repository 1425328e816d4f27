package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/provider"
	"github.com/multiplayers/arena/internal/repository"
)

// IdentityResolver validates a provider token and returns the normalized
// identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*provider.Identity, error)
}

// SocialAuthService implements one-step social login: resolve the provider
// token, find-or-create the account, issue a player token.
type SocialAuthService struct {
	db     repository.Pool
	users  repository.UserRepository
	google IdentityResolver
	jwtMgr *auth.JWTManager
	audit  *Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewSocialAuthService creates a new SocialAuthService.
func NewSocialAuthService(
	db repository.Pool,
	users repository.UserRepository,
	google IdentityResolver,
	jwtMgr *auth.JWTManager,
	audit *Auditor,
	logger *slog.Logger,
) *SocialAuthService {
	return &SocialAuthService{
		db:     db,
		users:  users,
		google: google,
		jwtMgr: jwtMgr,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// SocialLoginInput holds the social login request fields.
type SocialLoginInput struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

// SocialAuthResult is returned on successful social login.
type SocialAuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login resolves the token, upserts the account, and issues a player token.
func (s *SocialAuthService) Login(ctx context.Context, input SocialLoginInput, meta domain.RequestMeta) (*SocialAuthResult, error) {
	if input.Provider == "" || input.Token == "" {
		return nil, domain.ErrValidation("provider and token are required")
	}
	if !strings.EqualFold(input.Provider, "google") {
		return nil, domain.ErrValidation("unsupported provider, supported: Google")
	}

	identity, err := s.google.Resolve(ctx, input.Token)
	if err != nil {
		s.logger.Info("social token resolution failed", "provider", input.Provider, "error", err)
		return nil, domain.ErrUnauthorized("invalid social token")
	}

	user, err := s.upsert(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtMgr.GenerateToken(auth.RealmPlayer, user.ID, user.Email, user.Role, user.Username)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	return &SocialAuthResult{Token: token, User: user}, nil
}

// upsert finds the account by provider-subject id, creating it on first
// login and stamping login metadata on repeat logins. Resolving the same
// identity twice never yields two accounts: the unique index on google_id
// breaks the tie if two first logins race, and the loser re-reads the
// winner's row.
func (s *SocialAuthService) upsert(ctx context.Context, identity *provider.Identity, meta domain.RequestMeta) (*domain.User, error) {
	user, err := s.users.FindByGoogleID(ctx, s.db, identity.SubjectID)
	if err != nil {
		return nil, domain.ErrInternal("find user by provider id", err)
	}

	now := s.now()
	if user == nil {
		username := identity.Name
		if strings.TrimSpace(username) == "" {
			username = identity.Email
		}
		filled := meta.OrUnknown()
		user = &domain.User{
			Username:        username,
			Email:           identity.Email,
			Active:          true,
			Role:            domain.RolePlayer,
			Status:          "Active",
			GoogleID:        identity.SubjectID,
			LastLoginAt:     &now,
			LastLoginIP:     filled.IP,
			LastLoginDevice: filled.Device,
		}
		err = s.createVerified(ctx, user)
		if appErr, ok := err.(*domain.AppError); ok && appErr.Code == "CONFLICT" {
			user, err = s.users.FindByGoogleID(ctx, s.db, identity.SubjectID)
			if err == nil && user == nil {
				return nil, domain.ErrConflict("account already exists with this email or username")
			}
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}

	if user.Deleted || !user.Active {
		return nil, domain.ErrUnauthorized("account is disabled")
	}

	if err := s.users.TouchLogin(ctx, s.db, user.ID, now, meta.IP, meta.Device); err != nil {
		return nil, domain.ErrInternal("update login metadata", err)
	}
	user.LastLoginAt = &now
	if meta.IP != "" {
		user.LastLoginIP = meta.IP
	}
	if meta.Device != "" {
		user.LastLoginDevice = meta.Device
	}

	s.recordAudit(ctx, user.ID, domain.EventUserSocialLogin)
	return user, nil
}

func (s *SocialAuthService) createVerified(ctx context.Context, user *domain.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.users.Create(ctx, tx, user); err != nil {
		if _, ok := err.(*domain.AppError); ok {
			return err
		}
		return domain.ErrInternal("create user", err)
	}

	id := strconv.FormatInt(user.ID, 10)
	if err := s.audit.Record(ctx, tx, domain.AggregateUser, id, domain.EventUserCreated,
		map[string]string{"via": "social", "provider": "google"}); err != nil {
		return domain.ErrInternal("record audit event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}
	return nil
}

func (s *SocialAuthService) recordAudit(ctx context.Context, userID int64, evt domain.EventType) {
	id := strconv.FormatInt(userID, 10)
	if err := s.audit.Record(ctx, s.db, domain.AggregateUser, id, evt, nil); err != nil {
		s.logger.Warn("record audit event", "event", evt, "user_id", id, "error", err)
	}
}
