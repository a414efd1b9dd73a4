package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"frs/internal/auth"
	"frs/internal/cache"
	apperrors "frs/internal/errors"
	"frs/internal/mail"
	"frs/internal/model"
	"frs/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// CreateUserRequest carries the registration form.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateUserRequest carries the mutable user fields. Email cannot be changed.
type UpdateUserRequest struct {
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// UserService manages the account lifecycle.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetEnabledUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest, id uint) error
	DeleteUser(ctx context.Context, id uint) error
	ConfirmRegistration(ctx context.Context, token string) error
	GenerateRegistrationToken() string
}

// UserServiceConfig is the static configuration of the user service.
type UserServiceConfig struct {
	// BaseURL is the public address confirmation links point to.
	BaseURL string
}

// TokenGenerator produces registration tokens.
type TokenGenerator func() string

// UserServiceOption customizes a UserService.
type UserServiceOption func(*userService)

// WithTokenGenerator replaces the default UUID token generator.
func WithTokenGenerator(gen TokenGenerator) UserServiceOption {
	return func(s *userService) {
		if gen != nil {
			s.generateToken = gen
		}
	}
}

// WithCache enables read-through caching of GetUser.
func WithCache(c *cache.Client) UserServiceOption {
	return func(s *userService) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) UserServiceOption {
	return func(s *userService) {
		if l != nil {
			s.logger = l
		}
	}
}

type userService struct {
	repo          repository.UserRepository
	hasher        auth.PasswordHasher
	sender        mail.EmailSender
	composer      *mail.ConfirmationComposer
	validate      *validator.Validate
	cache         *cache.Client
	logger        *slog.Logger
	generateToken TokenGenerator
}

// NewUserService builds a UserService.
func NewUserService(
	repo repository.UserRepository,
	hasher auth.PasswordHasher,
	sender mail.EmailSender,
	cfg UserServiceConfig,
	opts ...UserServiceOption,
) UserService {
	s := &userService{
		repo:          repo,
		hasher:        hasher,
		sender:        sender,
		composer:      mail.NewConfirmationComposer(cfg.BaseURL),
		validate:      validator.New(),
		logger:        slog.Default(),
		generateToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// cachedUser is the cache representation of model.User. model.User hides
// the password hash and registration token from JSON, so it cannot be cached
// as is.
type cachedUser struct {
	ID                uint      `json:"id"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Enabled           bool      `json:"enabled"`
	RegistrationToken *string   `json:"registration_token"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newCachedUser(u *model.User) cachedUser {
	return cachedUser{
		ID:                u.ID,
		Email:             u.Email,
		Password:          u.Password,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Enabled:           u.Enabled,
		RegistrationToken: u.RegistrationToken,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (c cachedUser) user() *model.User {
	return &model.User{
		ID:                c.ID,
		Email:             c.Email,
		Password:          c.Password,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Enabled:           c.Enabled,
		RegistrationToken: c.RegistrationToken,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached cachedUser
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.user(), nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrUserDoesNotExist, "id %d", id)
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}

	if payload, err := json.Marshal(newCachedUser(user)); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

// GetEnabledUserByEmail treats pending users as absent so login cannot be
// used to find out which addresses are registered.
func (s *userService) GetEnabledUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrUserDoesNotExist, "%s", email)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !user.Enabled {
		return nil, apperrors.Wrap(apperrors.ErrUserDoesNotExist, "%s", email)
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperrors.Wrap(apperrors.ErrEmailAlreadyRegistered, "%s", email)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	token := s.GenerateRegistrationToken()
	user := &model.User{
		Email:             email,
		Password:          hashed,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Enabled:           false,
		RegistrationToken: &token,
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		// the unique index catches a registration racing past ExistsByEmail
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Wrap(apperrors.ErrEmailAlreadyRegistered, "%s", email)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}
	if saved == nil {
		saved = user
	}

	if err := s.sendConfirmation(ctx, saved, token); err != nil {
		s.logger.ErrorContext(ctx, "user: confirmation mail failed", "user_id", saved.ID, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "user: registered", "user_id", saved.ID)
	return saved, nil
}

func (s *userService) validateCreate(req CreateUserRequest) error {
	required := []struct {
		name  string
		value string
	}{
		{"email", req.Email},
		{"password", req.Password},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperrors.EmptyRequiredField(f.name)
		}
	}
	if err := s.validate.Var(strings.TrimSpace(req.Email), "email"); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidEmail, "%s", req.Email)
	}
	return nil
}

func (s *userService) sendConfirmation(ctx context.Context, user *model.User, token string) error {
	subject, body, err := s.composer.Compose(user.FirstName, token)
	if err != nil {
		return err
	}
	if err := s.sender.SendMail(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (s *userService) UpdateUser(ctx context.Context, req UpdateUserRequest, id uint) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrUserDoesNotExist, "id %d", id)
		}
		return fmt.Errorf("find user %d: %w", id, err)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	if _, err := s.repo.Save(ctx, user); err != nil {
		return fmt.Errorf("save user %d: %w", id, err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// DeleteUser does not check that the user exists; deleting an unknown id is not an error.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

func (s *userService) ConfirmRegistration(ctx context.Context, token string) error {
	user, err := s.repo.FindByRegistrationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrRegistrationTokenExpired, "%s", token)
		}
		return fmt.Errorf("find registration token: %w", err)
	}

	ok, err := s.repo.ConfirmRegistration(ctx, user.ID, token)
	if err != nil {
		return fmt.Errorf("confirm user %d: %w", user.ID, err)
	}
	if !ok {
		// consumed by a concurrent confirmation
		return apperrors.Wrap(apperrors.ErrRegistrationTokenExpired, "%s", token)
	}

	user.Enabled = true
	user.RegistrationToken = nil
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	s.logger.InfoContext(ctx, "user: registration confirmed", "user_id", user.ID)
	return nil
}

func (s *userService) GenerateRegistrationToken() string {
	return s.generateToken()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
