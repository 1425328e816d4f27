package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/service"
)

// UserHandler handles social login and the admin-facing user lifecycle.
type UserHandler struct {
	userSvc   *service.UserService
	socialSvc *service.SocialAuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc *service.UserService, socialSvc *service.SocialAuthService) *UserHandler {
	return &UserHandler{userSvc: userSvc, socialSvc: socialSvc}
}

// SocialLogin handles POST /api/users/social-login.
func (h *UserHandler) SocialLogin(w http.ResponseWriter, r *http.Request) {
	var input service.SocialLoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.socialSvc.Login(r.Context(), input, requestMeta(r))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.UserInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	user, err := h.userSvc.Create(r.Context(), input, requestMeta(r))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	user, err := h.userSvc.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, user)
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	users, err := h.userSvc.List(r.Context(), includeDeleted)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, users)
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var input service.UserInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	if _, err := h.userSvc.Update(r.Context(), id, input); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusNoContent, nil)
}

// Delete handles DELETE /api/users/{id}. The row is flagged deleted, not removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.userSvc.SoftDelete(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusNoContent, nil)
}

// KycVerify handles POST /api/users/{id}/kyc-verify.
func (h *UserHandler) KycVerify(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.userSvc.ApproveKyc(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "kyc verified"})
}

// ResetPassword handles POST /api/users/{id}/reset-password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var input struct {
		NewPassword string `json:"new_password"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	if err := h.userSvc.ResetPassword(r.Context(), id, input.NewPassword); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation("invalid user id")
	}
	return id, nil
}
