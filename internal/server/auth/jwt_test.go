package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authdesk/internal/common"
)

var secret = []byte("test-secret")

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken(42, "alice", secret, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("want username alice, got %q", claims.Username)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("want user id 42, got %d", id)
	}
}

func TestParse_ExpiredToken(t *testing.T) {
	token, err := GenerateToken(42, "alice", secret, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = ParseToken(token, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := GenerateToken(42, "alice", secret, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = ParseToken(token, []byte("other-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
