package services

import (
	"lawdesk_backend/internal/auth"
	"lawdesk_backend/internal/models"
	"lawdesk_backend/internal/repositories"
	"lawdesk_backend/pkg/apperrors"
)

// AuthService is the thin identity surface the messaging core needs:
// credential login issuing the JWT carried by both the REST API and the
// websocket transport. Account management lives elsewhere.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeInvalidCredentials, "auth", "Invalid email or password", 401)
	}
	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewAuthorizationError("account is disabled")
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.New(apperrors.CodeInvalidCredentials, "auth", "Invalid email or password", 401)
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &LoginResult{AccessToken: token, User: user}, nil
}

// Identity resolves a user ID to presence metadata for the gateway.
func (s *AuthService) Identity(userID string) (id, displayName string, err error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return "", "", apperrors.NewAuthenticationError("unknown identity")
	}
	return user.ID, user.Name, nil
}
