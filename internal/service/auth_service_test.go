package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewAuthService(&config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, rdb)
}

func TestLatestLoginWins(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)

	first, err := auth.GenerateToken(ctx, 7, model.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	second, err := auth.GenerateToken(ctx, 7, model.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}

	old, err := auth.ValidateToken(first)
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.ValidateSession(ctx, old.UserID, old.ID); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("first login: err = %v, want ErrSessionInvalidated", err)
	}

	cur, err := auth.ValidateToken(second)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Role != model.RoleStudent || cur.Issuer != tokenIssuer {
		t.Fatalf("claims = %+v", cur)
	}
	if err := auth.ValidateSession(ctx, cur.UserID, cur.ID); err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := auth.Logout(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if err := auth.ValidateSession(ctx, cur.UserID, cur.ID); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("after logout: err = %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	auth := newTestAuth(t)

	expired := newTestAuth(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.GenerateToken(context.Background(), 1, model.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 1,
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      stale,
		"wrong issuer": foreign,
		"wrong secret": mustSign(t, "other-secret"),
	} {
		if _, err := auth.ValidateToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func mustSign(t *testing.T, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 1,
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestCheckPassword(t *testing.T) {
	auth := newTestAuth(t)
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.CheckPassword(hash, "hunter22"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
	if err := auth.CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
}
