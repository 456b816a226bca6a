package config

import (
	"context"
	"testing"
	"time"

	"siteboard/domain"
	"siteboard/session"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEBUG", "SITEBOARD_API_URL", "SITEBOARD_SITE", "SITEBOARD_BOARD", "SITEBOARD_TOKEN",
		"LOCAL_AUTH_MODE", "LOCAL_AUTH_SHARED_SECRET", "AUTH0_DOMAIN", "AUTH0_AUDIENCE",
		"REDIS_CONNECTION_STRING", "BOARD_UPDATES_CHANNEL", "JWKS_CACHE_TTL", "DIRECTORY_CACHE_TTL",
		"SITEBOARD_REQUEST_TIMEOUT", "DRAG_ACTIVATION_DISTANCE", "STUB_API_PORT", "STUB_FIXTURES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Board != "issues" || c.AuthMode != AuthUnverified || c.ActivationDistance != 2 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.DirectoryTTL != 10*time.Minute || c.ListenAddr != ":8080" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestLoadPicksAuthMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCAL_AUTH_SHARED_SECRET", "s3cret")
	c, err := Load()
	if err != nil || c.AuthMode != AuthShared {
		t.Fatalf("expected shared mode, got %q %v", c.AuthMode, err)
	}

	clearEnv(t)
	t.Setenv("AUTH0_DOMAIN", "tenant.example.com")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing audience error")
	}
	t.Setenv("AUTH0_AUDIENCE", "console")
	c, err = Load()
	if err != nil || c.AuthMode != AuthJWKS {
		t.Fatalf("expected jwks mode, got %q %v", c.AuthMode, err)
	}
	if c.JWKSURL() != "https://tenant.example.com/.well-known/jwks.json" || c.Issuer() != "https://tenant.example.com/" {
		t.Fatalf("unexpected urls %s %s", c.JWKSURL(), c.Issuer())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"JWKS_CACHE_TTL":           "soon",
		"DIRECTORY_CACHE_TTL":      "-1m",
		"DRAG_ACTIVATION_DISTANCE": "two",
		"LOCAL_AUTH_MODE":          "rs512",
	}
	for k, v := range cases {
		clearEnv(t)
		t.Setenv(k, v)
		if _, err := Load(); err == nil {
			t.Errorf("%s=%s: expected error", k, v)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("SITEBOARD_BOARD", "tasks")
	t.Setenv("STUB_API_PORT", "9100")
	t.Setenv("DRAG_ACTIVATION_DISTANCE", "5")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Debug || c.Board != "tasks" || c.ListenAddr != ":9100" || c.ActivationDistance != 5 {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := RedisOptions("redis://:pw@localhost:6380/2")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("unexpected url options %+v", opts)
	}

	opts, err = RedisOptions("cache.example.net:6380,password=abc,ssl=True,abortConnect=False")
	if err != nil {
		t.Fatalf("conn string: %v", err)
	}
	if opts.Addr != "cache.example.net:6380" || opts.Password != "abc" || opts.TLSConfig == nil {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := RedisOptions(""); err == nil {
		t.Fatalf("expected error for empty connection string")
	}
}

func TestAuthenticatorModes(t *testing.T) {
	c := Config{AuthMode: AuthShared, SharedSecret: "s3cret"}
	auth, err := c.Authenticator()
	if err != nil {
		t.Fatalf("shared: %v", err)
	}
	tok, err := session.Sign([]byte("s3cret"), session.Identity{UserID: "u1", Role: domain.RoleWorker}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if id, err := auth.Identity(tok); err != nil || id.Role != domain.RoleWorker {
		t.Fatalf("unexpected identity %+v %v", id, err)
	}

	c = Config{AuthMode: AuthUnverified}
	if auth, err = c.Authenticator(); err != nil {
		t.Fatalf("unverified: %v", err)
	}
	if id, err := auth.Identity(tok); err != nil || id.UserID != "u1" {
		t.Fatalf("unexpected identity %+v %v", id, err)
	}

	if _, err := (Config{AuthMode: "kerberos"}).Authenticator(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestTracerProviderIssuesTraceIDs(t *testing.T) {
	tp := Config{}.TracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "board.transition")
	defer span.End()
	if sc := span.SpanContext(); !sc.HasTraceID() || !sc.IsSampled() {
		t.Fatalf("expected a sampled span with a trace id, got %+v", sc)
	}
}
