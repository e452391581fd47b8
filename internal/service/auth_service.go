package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type LoginResult struct {
	domain.TokenPair
	Role     domain.Role `json:"role"`
	Username string      `json:"username"`
}

type AuthService struct {
	directory  Directory
	jwtManager *auth.JWTManager
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewAuthService(directory Directory, jwtManager *auth.JWTManager, m *metrics.Collector, log *zap.Logger) *AuthService {
	return &AuthService{directory: directory, jwtManager: jwtManager, metrics: m, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string, ip string) (*LoginResult, error) {
	user, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		// Hash anyway so response time does not reveal whether the username exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		s.metrics.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		s.log.Warn("failed login attempt",
			zap.String("username", username),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return &LoginResult{TokenPair: *pair, Role: user.Role, Username: user.Username}, nil
}

// Authenticate resolves a bearer access token into the caller's current user
// record. Tokens for users that no longer exist are rejected.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.directory.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("resolving caller: %w", err)
	}
	return user, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
