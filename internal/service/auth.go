package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const minPasswordLen = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validEmail(s string) bool { return emailRe.MatchString(s) }

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *auth.Tokens
	Events EventPublisher
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	switch {
	case name == "" || email == "" || req.Password == "":
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	case len(req.Password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	case !validEmail(email):
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	taken, err := s.Repo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:         name,
		Surname:      strings.TrimSpace(req.Surname),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	publish(ctx, s.Events, TopicUsers, strconv.FormatUint(uint64(u.ID), 10), map[string]any{
		"type":   "user_registered",
		"userID": u.ID,
	})
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	u, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	res, next, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, next); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return res, nil
}

// Refresh trades a refresh token for a new pair. The old token is revoked in
// the same transaction, so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, token string) (*transport.LoginResult, error) {
	claims, userID, err := s.Tokens.ParseRefresh(token)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// role is re-read so a demoted admin does not keep admin access
	u, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	res, next, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, next); err != nil {
		if errors.Is(err, repo.ErrTokenExpiredOrRevoked) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, auth.Sha256Hex(token))
}

func (s *AuthService) issue(u *models.User) (*transport.LoginResult, *models.RefreshToken, error) {
	access, accessExp, err := s.Tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, jti, refreshExp, err := s.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	stored := &models.RefreshToken{
		Token:     auth.Sha256Hex(refresh),
		UserID:    u.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &transport.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         u,
	}, stored, nil
}
