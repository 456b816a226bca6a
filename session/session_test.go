package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"siteboard/domain"
)

var secret = []byte("test-secret")

func TestSharedRoundTrip(t *testing.T) {
	token, err := Sign(secret, Identity{UserID: "u1", Name: "Ana", Role: domain.RoleSupervisor}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := NewShared(secret).IdentityFromHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.UserID != "u1" || id.Role != domain.RoleSupervisor || id.Name != "Ana" {
		t.Fatalf("unexpected identity %#v", id)
	}
}

func TestSharedRejectsWrongSecret(t *testing.T) {
	token, _ := Sign([]byte("other"), Identity{UserID: "u1", Role: domain.RoleAdmin}, time.Hour)
	if _, err := NewShared(secret).Identity(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestSharedRejectsExpired(t *testing.T) {
	token, _ := Sign(secret, Identity{UserID: "u1"}, -2*time.Minute)
	if _, err := NewShared(secret).Identity(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestUnverifiedDefaultsRole(t *testing.T) {
	token, _ := Sign([]byte("whatever"), Identity{UserID: "u2"}, time.Hour)
	id, err := NewUnverified().Identity(token)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.Role != domain.RoleClient {
		t.Fatalf("expected least privileged role, got %q", id.Role)
	}
}

func TestMissingSubject(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if _, err := NewShared(secret).Identity(token); err != errMissingSubject {
		t.Fatalf("expected missing subject, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{header: "", err: errMissingAuthorization},
		{header: "   ", err: errMissingAuthorization},
		{header: "Basic abc", err: errBadAuthorization},
		{header: "Bearer ", err: errBadAuthorization},
		{header: " Bearer a.b.c ", want: "a.b.c"},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if err != tt.err || got != tt.want {
			t.Fatalf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, err, tt.want, tt.err)
		}
	}
	if _, err := NewUnverified().IdentityFromHeader("Bearer notatoken"); err != errBadAuthorization {
		t.Fatalf("expected bad authorization for malformed token, got %v", err)
	}
}
