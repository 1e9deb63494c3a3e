package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionInvalidated = errors.New("session invalidated")
)

const (
	tokenIssuer = "quizroom"
	// tokenLeeway absorbs clock skew between replicas.
	tokenLeeway = 30 * time.Second
)

// Claims identifies a login. ID (jti) names the login so that a newer one
// can supersede it.
type Claims struct {
	jwt.RegisteredClaims
	UserID int        `json:"user_id"`
	Role   model.Role `json:"role"`
}

// AuthService issues and checks logins. A user holds at most one active
// login; it is recorded in Redis under CacheKey.UserSessionKey.
type AuthService struct {
	secret     []byte
	expiry     time.Duration
	bcryptCost int
	rdb        *redis.Client
	parser     *jwt.Parser
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{
		secret:     []byte(cfg.JWTSecret),
		expiry:     cfg.JWTExpiry,
		bcryptCost: cfg.BcryptCost,
		rdb:        rdb,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(tokenLeeway),
		),
		now: time.Now,
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken signs a token for a new login and makes it the user's
// active one, which logs out any other device.
func (s *AuthService) GenerateToken(ctx context.Context, userID int, role model.Role) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID: userID,
		Role:   role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.UserSessionKey(userID), claims.ID, s.expiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry. It does not consult
// Redis; pair it with ValidateSession.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(tokenStr, claims, s.key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing user or token id", ErrInvalidToken)
	}
	return claims, nil
}

func (s *AuthService) key(*jwt.Token) (any, error) {
	return s.secret, nil
}

// ValidateSession checks that jti is the user's active login.
func (s *AuthService) ValidateSession(ctx context.Context, userID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrNoActiveSession
	case err != nil:
		return fmt.Errorf("check session: %w", err)
	case stored != jti:
		return ErrSessionInvalidated
	}
	return nil
}

// Logout drops the user's active login.
func (s *AuthService) Logout(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err()
}
