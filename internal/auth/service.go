package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"medicineweb/internal/directory"
	dErrors "medicineweb/pkg/domain-errors"
	"medicineweb/pkg/platform/sentinel"
	"medicineweb/pkg/secrets"
)

// Service verifies login credentials and issues access tokens.
type Service struct {
	accounts directory.AccountStore
	tokens   *JWTService
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(accounts directory.AccountStore, tokens *JWTService, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, tokens: tokens, logger: logger}
}

// LoginResult carries the issued token and the identity behind it.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Login verifies the password against the account row and mints a token.
// Wrong email, wrong password and deactivated account all read as the same
// Unauthorized error so login probing cannot tell them apart.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if err := secrets.Verify(password, account.PasswordHash); err != nil {
		return nil, err
	}
	if !account.Active {
		s.logger.WarnContext(ctx, "login refused for deactivated account", "account_id", account.ID)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(account.ID, string(account.Role))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		Role:        string(account.Role),
	}, nil
}
