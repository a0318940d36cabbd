package service

import (
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	svc := NewAuthService(db, "test-secret", 24)

	user, err := svc.Register("  Owner@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "owner@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.PasswordHash == "password123" {
		t.Fatalf("password stored in plain text")
	}

	if _, err := svc.Register("owner@example.com", "password123"); err == nil || !strings.Contains(err.Error(), "40005") {
		t.Fatalf("want 40005 for duplicate email, got %v", err)
	}
	if _, err := svc.Register("not-an-email", "password123"); err == nil {
		t.Fatalf("want error for bad email")
	}
	if _, err := svc.Register("short@example.com", "short"); err == nil {
		t.Fatalf("want error for short password")
	}

	loggedIn, token, _, err := svc.Login("OWNER@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != user.ID || token == "" {
		t.Fatalf("unexpected login result")
	}

	if _, _, _, err := svc.Login("owner@example.com", "wrongpass"); err == nil || !strings.Contains(err.Error(), "40103") {
		t.Fatalf("want 40103 for wrong password, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody@example.com", "password123"); err == nil || !strings.Contains(err.Error(), "40103") {
		t.Fatalf("want 40103 for unknown user, got %v", err)
	}
}
