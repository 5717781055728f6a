package handler

import (
	"encoding/json"
	"net/http"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/middleware"
	"medwatch-server/internal/service"
	"medwatch-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validate
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	loginResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Login successful", loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	loginResp, err := h.authService.Refresh(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Token refreshed", loginResp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// The body is optional: logout without a refresh token still revokes the
	// caller's sessions.
	var req domain.LogoutRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	h.authService.Logout(r.Context(), middleware.GetUserID(r), req.RefreshToken)

	response.Success(w, "Logged out successfully", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.authService.ChangePassword(r.Context(), &req); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Password changed successfully", nil)
}
