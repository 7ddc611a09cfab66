package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================
// Session & user profile
// ============================================================

// UserProfile is the cached user record, always in wire form:
// CPF and phone digits-only, birth date ISO (YYYY-MM-DD).
type UserProfile struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birthDate"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Session pairs a bearer token with the profile it authorizes.
type Session struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// Complete reports whether both halves of the session are present.
func (s Session) Complete() bool {
	return s.Token != "" && !s.User.ID.IsZero()
}

// ExpiresAt returns the token's exp claim when the token is a JWT carrying one.
// The signature is not checked: the client only uses exp to avoid sending a
// token the backend would certainly reject.
func (s Session) ExpiresAt() (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiredAt reports whether the token is known to be expired at now.
// Opaque tokens are never considered expired locally.
func (s Session) ExpiredAt(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// LoginResult is what the backend returns from POST /auth/login.
type LoginResult struct {
	Token string
	User  *UserProfile
}
