// Package services holds the operations behind the pages: sign-in and
// registration, and the ledger reads and mutations.
package services

import (
	"context"
	"fmt"

	"smartfin/internal/api"
	"smartfin/internal/core"
)

// AuthAPI is the authentication part of the SmartFin API.
type AuthAPI interface {
	Login(ctx context.Context, creds core.Credentials) (core.AuthResult, error)
	Register(ctx context.Context, reg core.Registration) (api.RegisterResult, error)
}

type AuthService struct {
	api AuthAPI
}

func NewAuthService(a AuthAPI) *AuthService {
	return &AuthService{api: a}
}

// Login checks the form locally, then exchanges credentials for a token.
func (s *AuthService) Login(ctx context.Context, creds core.Credentials) (core.AuthResult, error) {
	if err := creds.Validate(); err != nil {
		return core.AuthResult{}, err
	}
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("login: %w", err)
	}
	return res, nil
}

// Register checks the form locally, then creates the account.
func (s *AuthService) Register(ctx context.Context, reg core.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	res, err := s.api.Register(ctx, reg)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return res.Message, nil
}
