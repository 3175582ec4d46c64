package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"medicineweb/internal/directory/memstore"
	"medicineweb/internal/directory/models"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/secrets"
)

type LoginSuite struct {
	suite.Suite
	store   *memstore.InMemory
	service *Service
}

func TestLoginSuite(t *testing.T) {
	suite.Run(t, new(LoginSuite))
}

func (s *LoginSuite) SetupTest() {
	s.store = memstore.New()
	s.service = NewService(
		s.store.Accounts(),
		NewJWTService("test-signing-key", "medicineweb", time.Hour),
		slog.New(slog.DiscardHandler),
	)
}

func (s *LoginSuite) seedAccount(email, password string, active bool) *models.Account {
	hash, err := secrets.Hash(password)
	s.Require().NoError(err)
	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.Require().NoError(s.store.Accounts().CreateIfEmailAvailable(context.Background(), account))
	return account
}

func (s *LoginSuite) TestLogin() {
	ctx := context.Background()
	s.seedAccount("admin@clinic.example", "correct-password", true)

	s.Run("valid credentials return a usable token", func() {
		result, err := s.service.Login(ctx, "Admin@Clinic.Example", "correct-password")
		s.Require().NoError(err)
		s.Equal("Bearer", result.TokenType)
		s.Equal(string(models.RoleAdmin), result.Role)

		claims, err := s.service.tokens.ValidateToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal("admin", claims.Role)
	})

	s.Run("wrong password is unauthorized", func() {
		_, err := s.service.Login(ctx, "admin@clinic.example", "wrong-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email is unauthorized, not not-found", func() {
		_, err := s.service.Login(ctx, "nobody@clinic.example", "correct-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deactivated account is refused", func() {
		s.seedAccount("gone@clinic.example", "correct-password", false)
		_, err := s.service.Login(ctx, "gone@clinic.example", "correct-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing fields are a validation error", func() {
		_, err := s.service.Login(ctx, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
