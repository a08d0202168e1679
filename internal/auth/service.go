package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"bookcrew/internal/platform/crypto"
	"bookcrew/internal/platform/mail"
	"bookcrew/internal/profile"
	"bookcrew/internal/session"
	"bookcrew/internal/user"
)

// MinPasswordLength is the weak-password threshold.
const MinPasswordLength = 6

var check = validator.New()

type Config struct {
	Secret      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RememberTTL time.Duration
	ActionTTL   time.Duration
	// BaseURL prefixes the links sent by e-mail.
	BaseURL string
}

func DefaultConfig(secret string) Config {
	return Config{
		Secret:      secret,
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  30 * 24 * time.Hour,
		RememberTTL: 90 * 24 * time.Hour,
		ActionTTL:   24 * time.Hour,
		BaseURL:     "http://localhost:3000",
	}
}

// ProfileWriter mirrors account changes onto the profile document.
type ProfileWriter interface {
	Upsert(ctx context.Context, id profile.Identity, preferredDisplayName string) error
	SetEmail(ctx context.Context, uid, email string, verified bool) error
}

type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Result is returned by sign-up and sign-in. Warning is set when the account
// operation succeeded but a follow-up step (profile write, mail) did not.
type Result struct {
	User    user.User `json:"user"`
	Tokens  Tokens    `json:"tokens"`
	Status  string    `json:"status"`
	Warning string    `json:"warning,omitempty"`
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	RememberMe  bool
	Client      ClientInfo
}

type SignInInput struct {
	Email      string
	Password   string
	RememberMe bool
	Client     ClientInfo
}

type Service struct {
	cfg      Config
	users    *user.Service
	sessions *session.Service
	tokens   TokenRepository
	profiles ProfileWriter
	mailer   mail.Sender
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(cfg Config, users *user.Service, sessions *session.Service, tokens TokenRepository, profiles ProfileWriter, mailer mail.Sender, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		profiles: profiles,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return check.Var(email, "required,email") == nil
}

func identityOf(u user.User) profile.Identity {
	return profile.Identity{
		UID:           u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		DisplayName:   u.DisplayName,
	}
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Result, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return Result{}, codeErr(CodeInvalidEmail)
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return Result{}, codeErr(CodeWeakPassword)
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return Result{}, wrapErr(CodeUnavailable, err)
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = profile.DefaultDisplayName
	}

	u, err := s.users.Register(ctx, email, displayName, hash)
	if err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return Result{}, codeErr(CodeEmailInUse)
		}
		return Result{}, wrapErr(CodeUnavailable, err)
	}

	tokens, err := s.issue(ctx, u.ID, in.RememberMe, in.Client)
	if err != nil {
		return Result{}, wrapErr(CodeUnavailable, err)
	}

	res := Result{User: u, Tokens: tokens}
	if err := s.profiles.Upsert(ctx, identityOf(u), displayName); err != nil {
		s.logger.Warn("profile upsert after sign-up failed", "user_id", u.ID, "error", err)
		res.Warning = Message(CodeOf(err))
	}

	if err := s.sendVerification(ctx, u); err != nil {
		s.logger.Warn("verification mail failed", "user_id", u.ID, "error", err)
		res.Status = fmt.Sprintf("Account created for %s.", u.Email)
		if res.Warning == "" {
			res.Warning = "Could not send verification email right now."
		}
		return res, nil
	}
	res.Status = fmt.Sprintf("Account created for %s. Verification email sent.", u.Email)
	return res, nil
}

func (s *Service) SignIn(ctx context.Context, in SignInInput) (Result, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return Result{}, codeErr(CodeInvalidEmail)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Result{}, codeErr(CodeInvalidCredential)
		}
		return Result{}, wrapErr(CodeUnavailable, err)
	}
	if !crypto.VerifyPassword(u.PasswordHash, in.Password) {
		return Result{}, codeErr(CodeInvalidCredential)
	}

	tokens, err := s.issue(ctx, u.ID, in.RememberMe, in.Client)
	if err != nil {
		return Result{}, wrapErr(CodeUnavailable, err)
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.logger.Warn("touch last login failed", "user_id", u.ID, "error", err)
	}

	res := Result{User: u, Tokens: tokens, Status: fmt.Sprintf("Signed in as %s.", u.Email)}
	if err := s.profiles.Upsert(ctx, identityOf(u), ""); err != nil {
		s.logger.Warn("profile upsert after sign-in failed", "user_id", u.ID, "error", err)
		res.Warning = Message(CodeOf(err))
	}
	return res, nil
}

// Refresh rotates a refresh token: the presented one is consumed in a single
// delete, so a replayed token gets CodeUserTokenExpired, and a new pair is
// issued for the same device.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	sess, err := s.sessions.ConsumeByTokenHash(ctx, crypto.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Tokens{}, codeErr(CodeUserTokenExpired)
		}
		return Tokens{}, wrapErr(CodeUnavailable, err)
	}

	if _, err := s.users.GetByID(ctx, sess.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Tokens{}, codeErr(CodeUserTokenExpired)
		}
		return Tokens{}, wrapErr(CodeUnavailable, err)
	}

	tokens, err := s.issue(ctx, sess.UserID, sess.RememberMe, ClientInfo{UserAgent: sess.UserAgent, IPAddress: sess.IPAddress})
	if err != nil {
		return Tokens{}, wrapErr(CodeUnavailable, err)
	}
	return tokens, nil
}

// SignOut revokes the access token until it would have expired and drops the
// session behind refreshToken, if one is given.
func (s *Service) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := crypto.ParseToken(s.cfg.Secret, accessToken)
	if err != nil {
		return wrapErr(CodeUserTokenExpired, err)
	}

	expiresAt := s.now().Add(s.cfg.AccessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.sessions.AddToBlacklist(ctx, claims.ID, claims.Sub, expiresAt); err != nil {
		return wrapErr(CodeUnavailable, err)
	}

	if refreshToken != "" {
		if err := s.sessions.DeleteByTokenHash(ctx, crypto.HashToken(refreshToken)); err != nil {
			return wrapErr(CodeUnavailable, err)
		}
	}
	return nil
}

func (s *Service) issue(ctx context.Context, userID string, rememberMe bool, client ClientInfo) (Tokens, error) {
	accessToken, _, err := crypto.GenerateToken(s.cfg.Secret, userID, s.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refreshToken, err := crypto.RandomToken(32)
	if err != nil {
		return Tokens{}, err
	}

	ttl := s.cfg.RefreshTTL
	if rememberMe {
		ttl = s.cfg.RememberTTL
	}
	sess := &session.Session{
		UserID:           userID,
		RefreshTokenHash: crypto.HashToken(refreshToken),
		UserAgent:        client.UserAgent,
		IPAddress:        client.IPAddress,
		RememberMe:       rememberMe,
		ExpiresAt:        s.now().Add(ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// SendVerification mails a verification link to the signed-in user.
func (s *Service) SendVerification(ctx context.Context, userID string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", codeErr(CodeUserTokenExpired)
		}
		return "", wrapErr(CodeUnavailable, err)
	}
	if u.EmailVerified {
		return "Email is already verified.", nil
	}
	if err := s.sendVerification(ctx, u); err != nil {
		return "", wrapErr(CodeUnavailable, err)
	}
	return fmt.Sprintf("Verification email sent to %s.", u.Email), nil
}

func (s *Service) sendVerification(ctx context.Context, u user.User) error {
	token, err := s.newActionToken(ctx, u.ID, PurposeVerifyEmail, "")
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Verify your BookCrew email",
		Text:    "Confirm your email address by opening this link:\n\n" + s.link("/verify-email", token),
	})
}

func (s *Service) ConfirmVerification(ctx context.Context, token string) (string, error) {
	t, err := s.consume(ctx, PurposeVerifyEmail, token)
	if err != nil {
		return "", err
	}
	u, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", codeErr(CodeInvalidActionCode)
		}
		return "", wrapErr(CodeUnavailable, err)
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return "", wrapErr(CodeUnavailable, err)
	}
	if err := s.profiles.SetEmail(ctx, u.ID, u.Email, true); err != nil {
		s.logger.Warn("profile email sync failed", "user_id", u.ID, "error", err)
	}
	return "Email verified.", nil
}

// RequestPasswordReset answers the same way whether or not the address has an
// account. Only a malformed address is reported.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return "", codeErr(CodeInvalidEmail)
	}
	status := fmt.Sprintf("Password reset email sent to %s.", email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("password reset lookup failed", "error", err)
		}
		return status, nil
	}

	token, err := s.newActionToken(ctx, u.ID, PurposePasswordReset, "")
	if err != nil {
		s.logger.Warn("password reset token failed", "user_id", u.ID, "error", err)
		return status, nil
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Reset your BookCrew password",
		Text:    "Choose a new password by opening this link:\n\n" + s.link("/reset-password", token),
	})
	if err != nil {
		s.logger.Warn("password reset mail failed", "user_id", u.ID, "error", err)
	}
	return status, nil
}

// ConfirmPasswordReset sets the new password and signs out every device.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (string, error) {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return "", codeErr(CodeWeakPassword)
	}
	t, err := s.consume(ctx, PurposePasswordReset, token)
	if err != nil {
		return "", err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return "", wrapErr(CodeUnavailable, err)
	}
	if err := s.users.UpdatePassword(ctx, t.UserID, hash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", codeErr(CodeInvalidActionCode)
		}
		return "", wrapErr(CodeUnavailable, err)
	}
	if err := s.sessions.RevokeAll(ctx, t.UserID); err != nil {
		s.logger.Warn("revoke sessions after password reset failed", "user_id", t.UserID, "error", err)
	}
	return "Password updated. Sign in with your new password.", nil
}

// RequestEmailChange sends a confirmation link to newEmail. The change only
// happens once that link is opened.
func (s *Service) RequestEmailChange(ctx context.Context, userID, currentPassword, newEmail string) (string, error) {
	newEmail = normalizeEmail(newEmail)
	if !validEmail(newEmail) {
		return "", codeErr(CodeInvalidEmail)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", codeErr(CodeUserTokenExpired)
		}
		return "", wrapErr(CodeUnavailable, err)
	}
	if !crypto.VerifyPassword(u.PasswordHash, currentPassword) {
		return "", codeErr(CodeRequiresRecentLogin)
	}
	if newEmail == normalizeEmail(u.Email) {
		return "", codeErr(CodeInvalidNewEmail)
	}
	if err := s.ensureEmailFree(ctx, newEmail); err != nil {
		return "", err
	}

	token, err := s.newActionToken(ctx, u.ID, PurposeEmailChange, newEmail)
	if err != nil {
		return "", wrapErr(CodeRequiresRecentLogin, err)
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:      newEmail,
		Subject: "Confirm your new BookCrew email",
		Text:    "Confirm the change of your sign-in email by opening this link:\n\n" + s.link("/confirm-email-change", token),
	})
	if err != nil {
		return "", wrapErr(CodeRequiresRecentLogin, err)
	}
	return fmt.Sprintf("Email change verification sent to %s. Confirm it to complete the change.", newEmail), nil
}

func (s *Service) ConfirmEmailChange(ctx context.Context, token string) (string, error) {
	t, err := s.consume(ctx, PurposeEmailChange, token)
	if err != nil {
		return "", err
	}
	if err := s.ensureEmailFree(ctx, t.NewEmail); err != nil {
		return "", err
	}

	if err := s.users.UpdateEmail(ctx, t.UserID, t.NewEmail, true); err != nil {
		switch {
		case errors.Is(err, user.ErrAlreadyExists):
			return "", codeErr(CodeEmailInUse)
		case errors.Is(err, user.ErrNotFound):
			return "", codeErr(CodeInvalidActionCode)
		}
		return "", wrapErr(CodeUnavailable, err)
	}
	if err := s.profiles.SetEmail(ctx, t.UserID, t.NewEmail, true); err != nil {
		s.logger.Warn("profile email sync failed", "user_id", t.UserID, "error", err)
	}
	return fmt.Sprintf("Email address changed to %s.", t.NewEmail), nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return codeErr(CodeEmailInUse)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return wrapErr(CodeUnavailable, err)
	}
	return nil
}

// newActionToken replaces any outstanding token of the same purpose.
func (s *Service) newActionToken(ctx context.Context, userID string, purpose Purpose, newEmail string) (string, error) {
	if err := s.tokens.DeleteByUser(ctx, userID, purpose); err != nil {
		return "", err
	}
	raw, err := crypto.RandomToken(32)
	if err != nil {
		return "", err
	}
	t := &ActionToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: crypto.HashToken(raw),
		NewEmail:  newEmail,
		ExpiresAt: s.now().Add(s.cfg.ActionTTL),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) consume(ctx context.Context, purpose Purpose, raw string) (ActionToken, error) {
	if strings.TrimSpace(raw) == "" {
		return ActionToken{}, codeErr(CodeInvalidActionCode)
	}
	t, err := s.tokens.Consume(ctx, purpose, crypto.HashToken(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ActionToken{}, codeErr(CodeInvalidActionCode)
		}
		return ActionToken{}, wrapErr(CodeUnavailable, err)
	}
	if !s.now().Before(t.ExpiresAt) {
		return ActionToken{}, codeErr(CodeExpiredActionCode)
	}
	return t, nil
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
