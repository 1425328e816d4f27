package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/guard"
	"github.com/multiplayers/arena/internal/handler"
	"github.com/multiplayers/arena/internal/repository"
	"github.com/multiplayers/arena/internal/service"
)

// RouterDeps holds all dependencies needed by NewRouter. Mailer and Google
// are interfaces so tests can mount the full router against stand-ins.
type RouterDeps struct {
	Pool               *pgxpool.Pool
	JWTMgr             *auth.JWTManager
	Logger             *slog.Logger
	Mailer             service.Mailer
	Google             service.IdentityResolver
	PasswordInputMode  string
	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	userRepo := repository.NewPgUserRepository()
	adminRepo := repository.NewPgAdminRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Guards
	lockout := guard.NewLoginGuard(pool)
	adminLoginLimiter := guard.NewRateLimiter("admin_login", 20, time.Minute)
	socialLoginLimiter := guard.NewRateLimiter("social_login", 20, time.Minute)

	// Services
	auditor := service.NewAuditor(outboxRepo)
	otpMgr := service.NewOTPManager(adminRepo, nil)
	adminAuthSvc := service.NewAdminAuthService(pool, adminRepo, otpMgr, deps.Mailer, jwtMgr, lockout, auditor, logger)
	socialSvc := service.NewSocialAuthService(pool, userRepo, deps.Google, jwtMgr, auditor, logger)
	userSvc := service.NewUserService(pool, userRepo, deps.PasswordInputMode, auditor, logger)

	// Handlers
	adminAuthHandler := handler.NewAdminAuthHandler(adminAuthSvc)
	userHandler := handler.NewUserHandler(userSvc, socialSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(deps.CORSAllowedOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin/auth", func(r chi.Router) {
			r.With(handler.Throttle(adminLoginLimiter)).Post("/login", adminAuthHandler.Login)
			r.With(handler.Throttle(adminLoginLimiter)).Post("/verify-2fa", adminAuthHandler.Verify2FA)

			r.Group(func(r chi.Router) {
				r.Use(auth.AuthenticateAdmin(jwtMgr))
				r.Get("/me", adminAuthHandler.Me)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(handler.Throttle(socialLoginLimiter)).Post("/social-login", userHandler.SocialLogin)

			// Admin-authenticated user management
			r.Group(func(r chi.Router) {
				r.Use(auth.AuthenticateAdmin(jwtMgr))
				r.Use(auth.RequireRole(domain.RoleAdmin, domain.RoleModerator))

				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
				r.Post("/{id}/kyc-verify", userHandler.KycVerify)
				r.Post("/{id}/reset-password", userHandler.ResetPassword)
			})
		})
	})

	return r
}
