package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/role"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	passwords     map[string]string // email -> password hash
	userIDs       map[string]int64  // email -> userID
	usersByID     map[int64]*internal.SessionUser
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		passwords: map[string]string{
			"employee@example.com": string(hashedPassword),
			"manager@example.com":  string(hashedPassword),
			"admin@example.com":    string(hashedPassword),
		},
		userIDs: map[string]int64{
			"employee@example.com": 1,
			"manager@example.com":  2,
			"admin@example.com":    3,
		},
		usersByID: map[int64]*internal.SessionUser{
			1: {ID: 1, Email: "employee@example.com", Level: role.LevelEmployee, RoleName: role.RoleEmployee,
				Permissions: []string{role.PermCreateReport, role.PermViewOwn}},
			2: {ID: 2, Email: "manager@example.com", Level: role.LevelManager, RoleName: role.RoleManager,
				Permissions: []string{role.PermCreateReport, role.PermViewDepartment, role.PermApprove}},
			3: {ID: 3, Email: "admin@example.com", Level: role.LevelAdmin, RoleName: role.RoleAdmin,
				Permissions: []string{role.PermManageUsers, role.PermManageDepartments, role.PermApprove}},
		},
	}
}

func (m *mockUserRepository) GetPasswordForEmail(email string) (string, int64, error) {
	if m.returnError {
		return "", 0, m.errorToReturn
	}

	if hash, exists := m.passwords[email]; exists {
		return hash, m.userIDs[email], nil
	}
	return "", 0, errors.New("user not found")
}

func (m *mockUserRepository) GetUserWithPermissions(userID int64) (*internal.SessionUser, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}

	if user, exists := m.usersByID[userID]; exists {
		return user, nil
	}
	return nil, errors.New("user not found")
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator("test-session-secret-at-least-32-chars", time.Hour)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should open a session for a manager with valid credentials", func() {
			token, user, err := service.Authenticate(LoginDTO{
				Email:    "manager@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(token.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(token.ExpiresAt).To(gomega.BeTemporally(">", time.Now()))
			gomega.Expect(user.RoleName).To(gomega.Equal(role.RoleManager))
		})

		ginkgo.It("should reject a wrong password", func() {
			_, _, err := service.Authenticate(LoginDTO{
				Email:    "manager@example.com",
				Password: "wrong_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("should reject an unknown email", func() {
			_, _, err := service.Authenticate(LoginDTO{
				Email:    "nobody@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("should refuse panel access below manager rank", func() {
			_, _, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrUnauthorizedAccess))
		})

		ginkgo.It("should normalize the email before lookup", func() {
			_, user, err := service.Authenticate(LoginDTO{
				Email:    "  Admin@Example.com ",
				Password: "correct_password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user.Email).To(gomega.Equal("admin@example.com"))
		})

		ginkgo.It("should reject a missing password", func() {
			_, _, err := service.Authenticate(LoginDTO{Email: "manager@example.com"})

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should round-trip claims through a generated token", func() {
			token, _, err := service.Authenticate(LoginDTO{
				Email:    "admin@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(token.Token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("3"))
			gomega.Expect(claims.Email).To(gomega.Equal("admin@example.com"))
		})

		ginkgo.It("should reject garbage tokens", func() {
			_, err := service.ValidateAccessToken("not-a-token")

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject expired tokens", func() {
			expiredGen := NewJWTTokenGenerator("test-session-secret-at-least-32-chars", time.Hour)
			expiredGen.SessionTTL = -time.Minute
			token, err := expiredGen.GenerateSessionToken("2", "manager@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token.Token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject tokens signed with a different secret", func() {
			otherGen := NewJWTTokenGenerator("another-secret-also-32-characters-long", time.Hour)
			token, err := otherGen.GenerateSessionToken("2", "manager@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token.Token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("should produce a hash that verifies", func() {
			hash, err := service.HashPassword("s3cret-password")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-password"))).To(gomega.Succeed())
		})
	})
})
