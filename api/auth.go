package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/clientportal/internal/auth"
	"github.com/garnizeh/clientportal/internal/notify"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

// IdentityResolver maps an allow-listed user onto CRM contact and company
// ids. *portal.Service implements it.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, u models.AuthorizedUser) (*models.UserProfile, error)
}

// TokenDurations are the lifetimes of issued tokens.
type TokenDurations struct {
	Access     time.Duration
	RememberMe time.Duration
	Reset      time.Duration
}

type AuthHandler struct {
	users     repository.UserRepo
	resolver  IdentityResolver
	issuer    *auth.Issuer
	mailer    notify.Mailer
	validator *validate.Validator
	ttl       TokenDurations
	now       func() time.Time
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(users repository.UserRepo, resolver IdentityResolver, issuer *auth.Issuer, mailer notify.Mailer, v *validate.Validator, ttl TokenDurations) *AuthHandler {
	return &AuthHandler{
		users:     users,
		resolver:  resolver,
		issuer:    issuer,
		mailer:    mailer,
		validator: v,
		ttl:       ttl,
		now:       time.Now,
	}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type tokenResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	User      *models.UserSummary    `json:"user,omitempty"`
	Company   *models.CompanySummary `json:"company,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login checks the allow-list and the password, resolves the CRM identity
// and issues an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, h.validator, validate.Login, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	email := repository.NormalizeEmail(req.Email)

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.Active {
		logger.Warn("login refused: not on allow-list", slog.String("email", email))
		writeJSON(w, http.StatusForbidden, errorBody{Error: "this email is not authorized for portal access"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeUnauthorized(w, "invalid email or password", "credentials")
		return
	}

	profile, err := h.resolver.ResolveIdentity(ctx, *user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ttl := h.ttl.Access
	if req.RememberMe {
		ttl = h.ttl.RememberMe
	}
	token, exp, err := h.issuer.Issue(auth.Identity{
		UserID:    profile.User.ID,
		CompanyID: profile.Company.ID,
		Email:     user.Email,
	}, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.users.RecordLogin(ctx, user.Email, h.now()); err != nil && !errors.Is(err, repository.ErrReadOnly) {
		logger.Warn("record login failed", slog.String("email", user.Email), slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      &profile.User,
		Company:   &profile.Company,
	})
}

// Refresh reissues the caller's token with a fresh expiry.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "missing authorization header", reasonMissing)
		return
	}
	token, exp, err := h.issuer.Issue(id, h.ttl.Access)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp})
}

// Logout is a stateless acknowledgement; clients drop the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

const resetSent = "If the email is registered, password reset instructions have been sent"

// RequestReset mails a reset link to an active allow-listed email. The
// response is the same whether or not the email is known.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, h.validator, validate.ResetRequest, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	user, err := h.users.GetByEmail(ctx, req.Email)
	switch {
	case err != nil:
		logger.Error("reset lookup failed", slog.String("error", err.Error()))
	case user == nil || !user.Active || user.PasswordHash == "":
		logger.Info("reset requested for unknown or inactive email")
	default:
		token, err := h.issuer.IssueReset(user.Email, auth.Fingerprint(user.PasswordHash), h.ttl.Reset)
		if err != nil {
			logger.Error("issue reset token", slog.String("error", err.Error()))
			break
		}
		if err := h.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
			logger.Error("send reset email", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: resetSent})
}

// ConfirmReset sets a new password using a reset token. A token stops
// working once the password it was issued against has changed.
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, h.validator, validate.ResetConfirm, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	badToken := errorBody{Error: "invalid or expired reset token"}
	email, fp, err := h.issuer.ParseReset(req.Token)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, badToken)
		return
	}
	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.Active || auth.Fingerprint(user.PasswordHash) != fp {
		writeJSON(w, http.StatusBadRequest, badToken)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "password is too short"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.UpdatePassword(ctx, user.Email, hash); err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("password reset", slog.String("email", user.Email))
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}
