package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"siteboard/domain"
)

func TestClientGetJSONSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.Header.Get(headerIdempotencyKey) != "" {
			t.Errorf("GET must not carry an idempotency key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"p1","name":"Harbour Tower"}]`)
	}))
	defer srv.Close()

	var refs []domain.Ref
	if err := New(srv.URL+"/", "tok").GetJSON(context.Background(), "/api/projects", &refs); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "Harbour Tower" {
		t.Fatalf("unexpected refs %#v", refs)
	}
}

func TestClientPatchJSONCarriesIdempotencyKey(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"status":"resolved"}` {
			t.Errorf("unexpected body %s", body)
		}
		keys = append(keys, r.Header.Get(headerIdempotencyKey))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	for i := 0; i < 2; i++ {
		if err := c.PatchJSON(context.Background(), "/api/x/1", map[string]string{"status": "resolved"}, nil); err != nil {
			t.Fatalf("patch: %v", err)
		}
	}
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("expected distinct idempotency keys, got %v", keys)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "transition not allowed", http.StatusConflict)
	}))
	defer srv.Close()

	err := New(srv.URL, "").PatchJSON(context.Background(), "/api/x/1", map[string]string{"status": "open"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusConflict || !se.Rejected() {
		t.Fatalf("unexpected status error %#v", se)
	}
	if !strings.Contains(se.Error(), "transition not allowed") {
		t.Fatalf("expected body in error, got %q", se.Error())
	}
	if IsUnauthorized(err) {
		t.Fatalf("conflict is not an authorization failure")
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, "").GetJSON(context.Background(), "/api/projects", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(&StatusError{Code: http.StatusUnauthorized}) {
		t.Fatalf("expected 401 to be unauthorized")
	}
	if IsUnauthorized(errors.New("boom")) {
		t.Fatalf("plain errors are not unauthorized")
	}
}
