package auth

import (
	"context"
	"errors"
	"strings"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// Service implements account registration and login
type Service struct {
	users  interfaces.UserStore
	tokens *TokenIssuer
}

func NewService(users interfaces.UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register validates the request and stores a new user with a hashed
// password. Duplicate emails fail with interfaces.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := types.Validate(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues an access token
func (s *Service) Login(ctx context.Context, req types.LoginRequest) (*types.TokenResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := types.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidLogin
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &types.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}
