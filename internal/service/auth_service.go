package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AuthService coordinates porter login and registration.
type AuthService struct {
	porters    repository.PorterRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	PorterRepo repository.PorterRepository
	Tokens     *auth.TokenManager
	Logger     *zap.Logger
}

// RegisterInput describes a new porter account.
type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	}
	return &AuthService{
		porters:    deps.PorterRepo,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
		logger:     logger.Named("auth"),
	}
}

// Login authenticates an active porter by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Porter, string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and password required", nil)
	}
	porter, err := s.porters.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if porter.PasswordHash == "" || auth.ComparePassword(porter.PasswordHash, password) != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !porter.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}

	meta, token, err := s.tokenMgr.GenerateToken(porter.ID, porter.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return porter, token, meta.ExpiresAt, nil
}

// RegisterPorter creates a porter or admin account.
func (s *AuthService) RegisterPorter(ctx context.Context, input RegisterInput) (*domain.Porter, error) {
	details := map[string]any{}
	name := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		details["full_name"] = "required"
	}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "invalid"
	}
	if !auth.AcceptablePassword(input.Password) {
		details["password"] = "must be 8 to 72 characters"
	}
	role := input.Role
	if role == "" {
		role = domain.RolePorter
	}
	if role != domain.RolePorter && role != domain.RoleAdmin {
		details["role"] = "must be porter or admin"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid registration", details)
	}

	if _, err := s.porters.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	porter := &domain.Porter{
		FullName:     name,
		Email:        &email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		porter.Phone = &phone
	}
	if err := s.porters.Create(ctx, porter); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("porter registered", zap.String("porter_id", porter.ID), zap.String("role", string(role)))
	return porter, nil
}

// EnsureBootstrapAdmin creates the first admin when none exists and
// credentials are configured. It reports whether an account was created.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.AuthConfig) (bool, error) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPass == "" {
		return false, nil
	}
	count, err := s.porters.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	name := cfg.BootstrapAdminName
	if name == "" {
		name = "Administrator"
	}
	if _, err := s.RegisterPorter(ctx, RegisterInput{
		FullName: name,
		Email:    cfg.BootstrapAdminEmail,
		Password: cfg.BootstrapAdminPass,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", cfg.BootstrapAdminEmail))
	return true, nil
}
