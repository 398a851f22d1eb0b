package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/service"
)

func (s *Server) registerAuthRoutes() {
	register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	register(s.api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Create user",
		Description:   "Creates an account. Admin only.",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateUser)

	register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Current user",
		Description: "Returns the authenticated account",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCurrentUser)
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body *service.LoginResponse
}

// CreateUserInput wraps the create user request for Huma.
type CreateUserInput struct {
	Authorization string `header:"Authorization"`
	Body          service.CreateUserRequest
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// AuthenticatedInput is the input of operations that take no parameters
// besides the bearer token.
type AuthenticatedInput struct {
	Authorization string `header:"Authorization"`
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body)
	if err != nil {
		s.log(ctx).Info("login failed", "email", input.Body.Email)
		return nil, err
	}
	return &LoginOutput{Body: resp}, nil
}

func (s *Server) handleCreateUser(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.CreateUser(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Info("user created", "user_id", user.ID, "role", user.Role, "created_by", admin.ID)
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleCurrentUser(ctx context.Context, _ *AuthenticatedInput) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}
