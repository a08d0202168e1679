package auth

import (
	"errors"
	"net/http"
	"strings"

	"bookcrew/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type SignUpReq struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=60"`
	RememberMe  bool   `json:"remember_me"`
}

type SignInReq struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

type RefreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SignOutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenReq struct {
	Token string `json:"token" validate:"required,notblank"`
}

type PasswordResetReq struct {
	Email string `json:"email" validate:"required"`
}

type PasswordResetConfirmReq struct {
	Token       string `json:"token" validate:"required,notblank"`
	NewPassword string `json:"new_password" validate:"required"`
}

type EmailChangeReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email" validate:"required"`
}

var codeStatus = map[string]int{
	CodeEmailInUse:          http.StatusConflict,
	CodeInvalidEmail:        http.StatusBadRequest,
	CodeWeakPassword:        http.StatusBadRequest,
	CodeInvalidCredential:   http.StatusUnauthorized,
	CodeUserNotFound:        http.StatusUnauthorized,
	CodeExpiredActionCode:   http.StatusGone,
	CodeInvalidActionCode:   http.StatusBadRequest,
	CodeRequiresRecentLogin: http.StatusForbidden,
	CodeInvalidNewEmail:     http.StatusBadRequest,
	CodeUserTokenExpired:    http.StatusUnauthorized,
	CodePermissionDenied:    http.StatusForbidden,
	CodeUnavailable:         http.StatusServiceUnavailable,
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	httpx.JSONError(w, r, status, code, Message(code), nil)
}

func clientInfo(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return ClientInfo{UserAgent: r.Header.Get("User-Agent"), IPAddress: ip}
}

func statusBody(status string) map[string]string {
	return map[string]string{"status": status}
}

// SignUp handles POST /v1/auth/signup
// @Summary Create account
// @Description Register with email and password, receive tokens and a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpReq true "Sign-up request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/auth/signup [post]
func (h *HTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignUp(r.Context(), SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		RememberMe:  req.RememberMe,
		Client:      clientInfo(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, res)
}

// SignIn handles POST /v1/auth/signin
// @Summary Sign in
// @Description Authenticate with email and password and receive access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInReq true "Sign-in request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/signin [post]
func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignIn(r.Context(), SignInInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		Client:     clientInfo(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// Refresh handles POST /v1/auth/refresh
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshReq true "Refresh token request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/refresh [post]
func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, tokens, nil)
}

// SignOut handles POST /v1/auth/signout
// @Summary Sign out
// @Description Revoke the current access token and, when given, its refresh token
// @Tags auth
// @Accept json
// @Security Bearer
// @Param request body SignOutReq false "Refresh token to drop"
// @Success 204 "No Content"
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/signout [post]
func (h *HTTPHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	var req SignOutReq
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}

	if err := h.service.SignOut(r.Context(), strings.TrimPrefix(authHeader, "Bearer "), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// SendVerification handles POST /v1/auth/verify-email
// @Summary Send verification email
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/verify-email [post]
func (h *HTTPHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.SendVerification(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

// ConfirmVerification handles POST /v1/auth/verify-email/confirm
// @Summary Confirm email verification
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenReq true "Token from the verification link"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 410 {object} httpx.ErrorResponse
// @Router /v1/auth/verify-email/confirm [post]
func (h *HTTPHandler) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var req TokenReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	status, err := h.service.ConfirmVerification(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

// RequestPasswordReset handles POST /v1/auth/password-reset
// @Summary Request password reset
// @Description Always succeeds for a well-formed address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetReq true "Account email"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/auth/password-reset [post]
func (h *HTTPHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	status, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

// ConfirmPasswordReset handles POST /v1/auth/password-reset/confirm
// @Summary Set a new password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmReq true "Token and new password"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 410 {object} httpx.ErrorResponse
// @Router /v1/auth/password-reset/confirm [post]
func (h *HTTPHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	status, err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

// RequestEmailChange handles POST /v1/auth/email-change
// @Summary Start an email address change
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body EmailChangeReq true "Current password and new email"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/auth/email-change [post]
func (h *HTTPHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req EmailChangeReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	status, err := h.service.RequestEmailChange(r.Context(), httpx.UserIDFrom(r), req.CurrentPassword, req.NewEmail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

// ConfirmEmailChange handles POST /v1/auth/email-change/confirm
// @Summary Confirm an email address change
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenReq true "Token from the confirmation link"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 410 {object} httpx.ErrorResponse
// @Router /v1/auth/email-change/confirm [post]
func (h *HTTPHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req TokenReq
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	status, err := h.service.ConfirmEmailChange(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, statusBody(status), nil)
}

func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /v1/auth/signup", h.SignUp)
	mux.HandleFunc("POST /v1/auth/signin", h.SignIn)
	mux.HandleFunc("POST /v1/auth/refresh", h.Refresh)
	mux.Handle("POST /v1/auth/signout", auth(http.HandlerFunc(h.SignOut)))
	mux.Handle("POST /v1/auth/verify-email", auth(http.HandlerFunc(h.SendVerification)))
	mux.HandleFunc("POST /v1/auth/verify-email/confirm", h.ConfirmVerification)
	mux.HandleFunc("POST /v1/auth/password-reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /v1/auth/password-reset/confirm", h.ConfirmPasswordReset)
	mux.Handle("POST /v1/auth/email-change", auth(http.HandlerFunc(h.RequestEmailChange)))
	mux.HandleFunc("POST /v1/auth/email-change/confirm", h.ConfirmEmailChange)
}
