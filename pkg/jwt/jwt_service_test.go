package jwt

import (
	"errors"
	"testing"
	"time"

	"foodgram/domain"

	"github.com/google/uuid"
)

func TestUserTokenRoundtrip(t *testing.T) {
	service := NewJWTService()
	userID := uuid.NewString()

	token := service.GenerateTokenUser(userID)
	if token == "" {
		t.Fatal("GenerateTokenUser() returned empty token")
	}

	got, err := service.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("GetUserIDByToken() error = %v", err)
	}
	if got != userID {
		t.Errorf("GetUserIDByToken() = %s, want %s", got, userID)
	}
}

func TestGetUserIDByTokenInvalid(t *testing.T) {
	service := NewJWTService()

	if _, err := service.GetUserIDByToken("not.a.token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("GetUserIDByToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestResetPasswordTokenRoundtrip(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenResetPassword(map[string]any{"email": "cook@example.com"}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateTokenResetPassword() error = %v", err)
	}

	claims, err := service.ValidateTokenResetPassword(token)
	if err != nil {
		t.Fatalf("ValidateTokenResetPassword() error = %v", err)
	}
	if email, _ := claims["email"].(string); email != "cook@example.com" {
		t.Errorf("claims email = %q, want cook@example.com", email)
	}
}

func TestResetPasswordTokenExpired(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenResetPassword(map[string]any{"email": "cook@example.com"}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateTokenResetPassword() error = %v", err)
	}

	if _, err := service.ValidateTokenResetPassword(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("ValidateTokenResetPassword() error = %v, want ErrTokenExpired", err)
	}
}
