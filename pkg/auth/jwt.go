package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/medbook/config"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
)

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 10 * time.Second

type kind string

const (
	kindAccess  kind = "access"
	kindRefresh kind = "refresh"
)

// accessClaims carry the caller identity the API authorizes on.
type accessClaims struct {
	jwt.RegisteredClaims
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Kind     kind        `json:"kind"`
}

// refreshClaims carry only the subject. Username and role are re-read from
// the user directory when the token is redeemed.
type refreshClaims struct {
	jwt.RegisteredClaims
	Kind kind `json:"kind"`
}

// JWTManager issues and verifies HS256 access and refresh tokens.
type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
		now: time.Now,
	}
}

// GenerateTokenPair signs an access token for c and a refresh token for the
// same subject. ExpiresAt is the access token's expiry.
func (m *JWTManager) GenerateTokenPair(c *domain.Claims) (*domain.TokenPair, error) {
	now := m.now()

	access := accessClaims{
		RegisteredClaims: m.registered(c.UserID, now, m.accessTTL),
		Username:         c.Username,
		Role:             c.Role,
		Kind:             kindAccess,
	}
	accessToken, err := m.sign(access)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshToken, err := m.sign(refreshClaims{
		RegisteredClaims: m.registered(c.UserID, now, m.refreshTTL),
		Kind:             kindRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt.Time,
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccessToken returns the identity carried by an access token.
func (m *JWTManager) ValidateAccessToken(raw string) (*domain.Claims, error) {
	var c accessClaims
	if err := m.parse(raw, &c); err != nil {
		return nil, err
	}
	if c.Kind != kindAccess {
		return nil, ErrTokenTypeMismatch
	}
	userID, err := subject(&c.RegisteredClaims)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{UserID: userID, Username: c.Username, Role: c.Role}, nil
}

// ValidateRefreshToken returns the id of the user the token was issued to.
func (m *JWTManager) ValidateRefreshToken(raw string) (uuid.UUID, error) {
	var c refreshClaims
	if err := m.parse(raw, &c); err != nil {
		return uuid.Nil, err
	}
	if c.Kind != kindRefresh {
		return uuid.Nil, ErrTokenTypeMismatch
	}
	return subject(&c.RegisteredClaims)
}

func (m *JWTManager) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parse(raw string, claims jwt.Claims) error {
	_, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

func subject(c *jwt.RegisteredClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}
