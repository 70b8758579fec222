package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/role"
)

type UserRepository interface {
	GetPasswordForEmail(email string) (passwordHash string, userID int64, err error)
	GetUserWithPermissions(userID int64) (*internal.SessionUser, error)
}

type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
	}
}

// Authenticate validates credentials and opens an admin panel session.
// The panel is restricted to manager rank and above.
func (s *Service) Authenticate(dto LoginDTO) (SessionToken, *internal.SessionUser, error) {
	if err := dto.Validate(); err != nil {
		return SessionToken{}, nil, err
	}

	storedHash, userID, err := s.userRepo.GetPasswordForEmail(dto.Email)
	if err != nil {
		return SessionToken{}, nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(dto.Password)); err != nil {
		return SessionToken{}, nil, internal.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetUserWithPermissions(userID)
	if err != nil {
		return SessionToken{}, nil, internal.ErrInvalidCredentials
	}

	if user.Level < role.LevelManager {
		return SessionToken{}, nil, internal.ErrUnauthorizedAccess
	}

	token, err := s.tokenGenerator.GenerateSessionToken(strconv.FormatInt(userID, 10), user.Email)
	if err != nil {
		return SessionToken{}, nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return token, user, nil
}

// ValidateAccessToken validates a session token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// GetUserWithPermissions loads the session principal with its primary
// role flags for request context.
func (s *Service) GetUserWithPermissions(userID int64) (*internal.SessionUser, error) {
	return s.userRepo.GetUserWithPermissions(userID)
}

// HashPassword creates a bcrypt hash of the password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateSessionToken creates a signed HS256 session token.
func (j *JWTTokenGenerator) GenerateSessionToken(userID, email string) (SessionToken, error) {
	expiresAt := time.Now().Add(j.SessionTTL)

	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return SessionToken{}, err
	}

	return SessionToken{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies a session token.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
