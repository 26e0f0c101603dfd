package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// RegisterInput is a new account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name" validate:"max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
}

// AuthService issues access tokens and resolves them back to an
// Identity.
type AuthService struct {
	users      *repository.UserRepo
	secret     string
	ttlMin     int
	bcryptCost int
	clock      Clock
}

// NewAuthService builds the token provider.
func NewAuthService(users *repository.UserRepo, secret string, ttlMin, bcryptCost int, clock Clock) *AuthService {
	if users == nil {
		panic("nil repository passed to NewAuthService")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuthService{users: users, secret: secret, ttlMin: ttlMin, bcryptCost: bcryptCost, clock: clock}
}

// Register creates an active non-admin account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.create(ctx, in, false)
}

func (s *AuthService) create(ctx context.Context, in RegisterInput, admin bool) (*model.User, error) {
	in.normalize()
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsAdmin:      admin,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "admin": admin}).Info("user registered")
	return u, nil
}

// Login checks credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, utils.AccessToken, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, utils.AccessToken{}, ErrInvalidCredentials
		}
		return nil, utils.AccessToken{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, utils.AccessToken{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, utils.AccessToken{}, ErrInactiveUser
	}
	tok, err := utils.NewAccessToken(s.secret, u.ID, u.Role(), u.IsAdmin, s.ttlMin)
	if err != nil {
		return nil, utils.AccessToken{}, err
	}
	return u, tok, nil
}

// Resolve verifies a bearer token and reloads its user, so a revoked
// admin flag or a deactivated account takes effect immediately.
func (s *AuthService) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := utils.ParseAccessToken(s.secret, token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	id, err := claims.UserID()
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, err
	}
	return Identity{UserID: u.ID, IsAdmin: u.IsAdmin, IsActive: u.IsActive}, nil
}

// Me returns the account behind an identity.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates an admin account, or promotes the existing account
// with the same username.  created reports which one happened.
func (s *AuthService) EnsureAdmin(ctx context.Context, in RegisterInput) (u *model.User, created bool, err error) {
	existing, err := s.users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		if err := s.users.Promote(ctx, existing.ID); err != nil {
			return nil, false, err
		}
		existing.IsAdmin, existing.IsActive = true, true
		logrus.WithField("user_id", existing.ID).Info("user promoted to admin")
		return existing, false, nil
	case errors.Is(err, repository.ErrUserNotFound):
		u, err := s.create(ctx, in, true)
		return u, err == nil, err
	default:
		return nil, false, err
	}
}
