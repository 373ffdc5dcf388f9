// Package auth issues and verifies the portal's signed bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("auth: missing token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

const purposePasswordReset = "password_reset"

// Identity is what a verified access token proves about the caller.
type Identity struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Email     string `json:"email,omitempty"`
}

// Issuer signs and verifies HS256 tokens with one shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// Issue mints an access token for id valid for ttl.
func (i *Issuer) Issue(id Identity, ttl time.Duration) (string, time.Time, error) {
	if id.UserID == "" || id.CompanyID == "" {
		return "", time.Time{}, fmt.Errorf("auth: user_id and company_id are required")
	}
	exp := i.now().Add(ttl)
	claims := jwt.MapClaims{
		"user_id":    id.UserID,
		"company_id": id.CompanyID,
		"exp":        exp.Unix(),
		"iat":        i.now().Unix(),
	}
	if id.Email != "" {
		claims["email"] = id.Email
	}
	s, err := i.sign(claims)
	return s, exp, err
}

// Parse verifies an access token. Expired tokens fail with ErrTokenExpired,
// everything else (bad signature, malformed, wrong algorithm, missing
// claims, reset tokens) with ErrTokenInvalid.
func (i *Issuer) Parse(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	claims, err := i.parse(token)
	if err != nil {
		return nil, err
	}
	if _, ok := claims["purpose"]; ok {
		return nil, ErrTokenInvalid
	}

	id := &Identity{
		UserID:    claimString(claims, "user_id"),
		CompanyID: claimString(claims, "company_id"),
		Email:     claimString(claims, "email"),
	}
	if id.UserID == "" || id.CompanyID == "" {
		return nil, ErrTokenInvalid
	}
	return id, nil
}

// IssueReset mints a password-reset token for email. fingerprint binds the
// token to the password hash current at issue time so it stops working once
// the password changes.
func (i *Issuer) IssueReset(email, fingerprint string, ttl time.Duration) (string, error) {
	return i.sign(jwt.MapClaims{
		"purpose": purposePasswordReset,
		"email":   email,
		"fp":      fingerprint,
		"exp":     i.now().Add(ttl).Unix(),
	})
}

// ParseReset verifies a password-reset token and returns its email and
// fingerprint.
func (i *Issuer) ParseReset(token string) (email, fingerprint string, err error) {
	if token == "" {
		return "", "", ErrTokenMissing
	}
	claims, err := i.parse(token)
	if err != nil {
		return "", "", err
	}
	if claimString(claims, "purpose") != purposePasswordReset {
		return "", "", ErrTokenInvalid
	}
	email = claimString(claims, "email")
	if email == "" {
		return "", "", ErrTokenInvalid
	}
	return email, claimString(claims, "fp"), nil
}

func (i *Issuer) sign(claims jwt.MapClaims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return s, nil
}

func (i *Issuer) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func claimString(c jwt.MapClaims, key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
