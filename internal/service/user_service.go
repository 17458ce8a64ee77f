package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// DefaultUsers are the demo accounts seeded at boot.
var DefaultUsers = []domain.User{
	{ID: "1", Name: "Requester User", Email: "requester@example.com", Role: domain.RoleRequester},
	{ID: "2", Name: "Analyst User", Email: "analyst@example.com", Role: domain.RoleAnalyst},
	{ID: "3", Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin},
}

// UserService manages the set of known users.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	seedSecret string
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies bundles requirements for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
	SeedSecret string
	Logger     *zap.Logger
}

// UserInput is the admin create/update payload.
type UserInput struct {
	Name   string
	Email  string
	Role   domain.Role
	Secret string
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		bcryptCost: deps.BcryptCost,
		seedSecret: deps.SeedSecret,
		logger:     logger,
		now:        time.Now,
	}
}

// Seed creates any of users that do not exist yet, all sharing the seed secret.
func (s *UserService) Seed(ctx context.Context, users []domain.User) error {
	hash, err := auth.HashPassword(s.seedSecret, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for _, u := range users {
		if _, err := s.users.GetByID(ctx, u.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		user := u
		user.PasswordHash = hash
		user.CreatedAt, user.UpdatedAt = now, now
		if err := s.users.Create(ctx, &user); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	s.logger.Info("users seeded", zap.Int("count", len(users)))
	return nil
}

// List returns users, optionally restricted to role. Admin only.
func (s *UserService) List(ctx context.Context, actor *domain.User, role *domain.Role) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// ListAnalysts returns assignable users for analysts and admins.
func (s *UserService) ListAnalysts(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleAnalyst, domain.RoleAdmin); err != nil {
		return nil, err
	}
	role := domain.RoleAnalyst
	users, err := s.users.List(ctx, &role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// Get returns one user. Admins may read anyone; others only themselves.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.ID != id && !auth.HasRole(actor, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("cannot read other users")
	}
	return s.lookup(ctx, id)
}

// Create adds a user. Admin only.
func (s *UserService) Create(ctx context.Context, actor *domain.User, input UserInput) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	input, err := normalizeUserInput(input)
	if err != nil {
		return nil, err
	}
	secret := input.Secret
	if secret == "" {
		secret = s.seedSecret
	}
	hash, err := auth.HashPassword(secret, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		Role:         input.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserRepoError(err, user.ID)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("actor_id", actor.ID))
	return user, nil
}

// Update changes name, e-mail, role and optionally the secret. Admin only.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, input UserInput) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	input, err := normalizeUserInput(input)
	if err != nil {
		return nil, err
	}
	user, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name, user.Email, user.Role = input.Name, input.Email, input.Role
	if input.Secret != "" {
		hash, err := auth.HashPassword(input.Secret, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserRepoError(err, id)
	}
	s.logger.Info("user updated", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return user, nil
}

// Delete removes a user. Tickets and interactions referencing them are kept.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapUserRepoError(err, id)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *UserService) lookup(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapUserRepoError(err, id)
	}
	return user, nil
}

func normalizeUserInput(input UserInput) (UserInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	details := map[string]any{}
	if input.Name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		details["email"] = "invalid address"
	}
	if !input.Role.Valid() {
		details["role"] = "must be requester, analyst or admin"
	}
	if len(details) > 0 {
		return input, apperrors.NewValidationError("invalid user", details)
	}
	return input, nil
}

func mapUserRepoError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewUserNotFound(id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("email already in use", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

func requireRole(actor *domain.User, roles ...domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !auth.HasRole(actor, roles...) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}
