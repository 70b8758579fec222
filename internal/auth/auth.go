package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the admin panel session token.
const SessionCookieName = "session_token"

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TokenGenerator interface {
	GenerateSessionToken(userID, email string) (SessionToken, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret     []byte
	SessionTTL time.Duration
}

func NewJWTTokenGenerator(secret string, sessionTTL time.Duration) *JWTTokenGenerator {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:     []byte(secret),
		SessionTTL: sessionTTL,
	}
}

// SessionCookie builds the http-only cookie for a freshly issued session.
func SessionCookie(token SessionToken) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie on logout.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
