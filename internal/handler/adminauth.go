package handler

import (
	"net/http"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/service"
)

// AdminAuthHandler handles the two-step admin login endpoints.
type AdminAuthHandler struct {
	authSvc *service.AdminAuthService
}

// NewAdminAuthHandler creates a new AdminAuthHandler.
func NewAdminAuthHandler(authSvc *service.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{authSvc: authSvc}
}

// Login handles POST /api/admin/auth/login.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.AdminLoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	if err := h.authSvc.Login(r.Context(), input, requestMeta(r)); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"message": "2FA code sent to your email",
	})
}

// Verify2FA handles POST /api/admin/auth/verify-2fa.
func (h *AdminAuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var input service.AdminVerifyInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.authSvc.Verify2FA(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Me handles GET /api/admin/auth/me.
func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		RespondError(w, domain.ErrUnauthorized("missing token claims"))
		return
	}
	adminID, err := claims.AccountID()
	if err != nil {
		RespondError(w, domain.ErrUnauthorized("invalid token subject"))
		return
	}

	admin, err := h.authSvc.Me(r.Context(), adminID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, admin)
}
