package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// AuthService is the identity store's session surface: login, session
// resolution and logout. Core services never consult it; they receive the
// acting user explicitly.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	SessionRepo  repository.SessionRepository
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.UserRepo,
		sessions: deps.SessionRepo,
		tokenMgr: deps.TokenManager,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate maps an e-mail identifier to a known user. The secret is
// checked against the user's stored hash; this is a placeholder check.
func (s *AuthService) Authenticate(ctx context.Context, identifier, secret string) (*domain.User, error) {
	email := strings.TrimSpace(identifier)
	if email == "" {
		return nil, apperrors.NewInvalidCredentials()
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInvalidCredentials()
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if user.PasswordHash == "" || auth.ComparePassword(user.PasswordHash, secret) != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	return user, nil
}

// Login authenticates and opens a session.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, identifier, secret)
	if err != nil {
		s.logger.Info("login rejected", zap.String("identifier", identifier))
		return nil, err
	}
	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenMgr.TTL()),
	}
	token, err := s.tokenMgr.GenerateToken(user, session)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Resolve validates a token and returns its live session and user.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.User, domain.Session, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewUnauthorized("invalid token")
	}
	session, err := s.sessions.Get(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Session{}, apperrors.NewUnauthorized("session expired or logged out")
	}
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	if session.UserID != claims.Subject {
		return nil, domain.Session{}, apperrors.NewUnauthorized("session does not match token")
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Session{}, apperrors.NewUnauthorized("user no longer exists")
	}
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return user, *session, nil
}

// CurrentUser returns the user behind a session token; Unauthorized when there is none.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, _, err := s.Resolve(ctx, token)
	return user, err
}

// Logout clears the session behind token. Logging out twice is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("logout", zap.String("user_id", claims.Subject))
	return nil
}

// TokenManager exposes the JWT manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
