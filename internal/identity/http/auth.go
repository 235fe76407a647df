package http

import (
	"net/http"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/pkg/httpx"
)

const timeFormat = time.RFC3339

// AuthHandler covers the unauthenticated credential surface plus logout and
// the logged-in password change.
type AuthHandler struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Otp      *service.OtpService
	Recovery *service.RecoveryService
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, err := h.Accounts.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, sess, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt.Format(timeFormat),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
		return
	}
	if err := h.Sessions.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers 202. Whether the address exists is not
// observable from the outside.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Recovery.Request(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Recovery.Reset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type otpRequestRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (h *AuthHandler) RequestOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	purpose := domain.OtpPurpose(req.Purpose)
	if !purpose.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown purpose")
		return
	}
	if err := h.Otp.Request(r.Context(), req.Email, purpose); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type otpVerifyRequest struct {
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password,omitempty"`
}

// VerifyOtp consumes a code and runs the purpose-bound side effect: flipping
// the verified flag or changing the password.
func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch domain.OtpPurpose(req.Purpose) {
	case domain.OtpPurposeEmailVerify:
		err = h.Otp.VerifyEmail(r.Context(), req.Email, req.Code)
	case domain.OtpPurposePasswordChange:
		err = h.Otp.ChangePasswordWithOtp(r.Context(), req.Email, req.Code, req.NewPassword)
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown purpose")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	err := h.Accounts.ChangePassword(ctx,
		httpx.UserIDFromContext(ctx),
		httpx.SessionIDFromContext(ctx),
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
