package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type UserService struct {
	Repo *repo.GormRepo
}

func (s *UserService) Profile(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, req transport.ProfileRequest) (*models.User, error) {
	u := &models.User{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Surname: strings.TrimSpace(req.Surname),
		Email:   normalizeEmail(req.Email),
	}
	switch {
	case u.Name == "" || u.Email == "":
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	case !validEmail(u.Email):
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	taken, err := s.Repo.EmailTaken(ctx, u.Email, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already in use", ErrConflict)
	}

	if err := s.Repo.UpdateProfile(ctx, u); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repo.ErrUserAlreadyExist):
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return nil, err
	}
	return s.Profile(ctx, id)
}
