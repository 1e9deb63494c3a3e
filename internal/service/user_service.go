package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/repository"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// UserService manages student and admin accounts.
type UserService struct {
	userRepo    *repository.UserRepository
	authService *AuthService
	log         zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo *repository.UserRepository, authService *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		authService: authService,
		log:         log.With().Str("component", "user_service").Logger(),
	}
}

// Register creates a student account.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	return s.create(ctx, req.Name, req.Email, req.Password, model.RoleStudent)
}

// CreateAdmin creates an administrator account.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.create(ctx, name, email, password, model.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info().Int("user_id", u.ID).Str("role", string(role)).Msg("User created")
	return u, nil
}

// Authenticate checks credentials and returns a fresh token for the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.authService.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// issue returns a fresh token for an existing user.
func (s *UserService) issue(ctx context.Context, u *model.User) (*model.LoginResponse, error) {
	token, err := s.authService.GenerateToken(ctx, u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, User: *u}, nil
}

// RegisterAndLogin creates a student and logs them in.
func (s *UserService) RegisterAndLogin(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	u, err := s.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// GetByID retrieves a user.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// SetPassword replaces a user's password.
func (s *UserService) SetPassword(ctx context.Context, email, password string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, u.ID, hash)
}
