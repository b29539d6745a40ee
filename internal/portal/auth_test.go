package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRequireAuth_NoneAlwaysPasses(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(AuthNone, nil, nil)("advisor-1", next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestRequireAuth_SecretBasicRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	resolver := func(ctx context.Context, advisorID string) (string, bool) {
		return string(hash), true
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(AuthSecretBasic, resolver, nil)("advisor-1", next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("advisor-1", "wrong-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestRequireAuth_SecretBasicAcceptsCorrectPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	resolver := func(ctx context.Context, advisorID string) (string, bool) {
		return string(hash), true
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(AuthSecretBasic, resolver, nil)("advisor-1", next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("advisor-1", "correct-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestRequireAuth_SecretBasicRejectsUnknownAdvisor(t *testing.T) {
	resolver := func(ctx context.Context, advisorID string) (string, bool) {
		return "", false
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(AuthSecretBasic, resolver, nil)("ghost-advisor", next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ghost-advisor", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestRequireAuth_GoogleOAuthRejectsMismatchedAdvisor(t *testing.T) {
	validator := func(r *http.Request) (string, bool) {
		return "advisor-2", true
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(AuthGoogleOAuth, nil, validator)("advisor-1", next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}
