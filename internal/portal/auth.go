package portal

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AuthMode selects how a portal route authenticates its caller.
type AuthMode string

const (
	AuthNone        AuthMode = "none"
	AuthSecretBasic AuthMode = "secret_basic"
	AuthGoogleOAuth AuthMode = "google_oauth"
)

type contextKey string

const advisorIDKey contextKey = "advisor_id"

// dummyHash is compared against on every auth failure path so a
// missing advisor and a wrong password take the same time to reject,
// the same trick the teacher's SimplifiedLogin uses against email
// enumeration.
const dummyHash = "$2a$10$dummy.hash.for.timing.attack.prevention.placeholder"

// SecretResolver looks up the bcrypt hash of an advisor's configured
// portal secret. ok is false when no advisor matches advisorID.
type SecretResolver func(ctx context.Context, advisorID string) (hash string, ok bool)

// OAuthValidator validates an inbound Google OAuth session and returns
// the authenticated advisor ID.
type OAuthValidator func(r *http.Request) (advisorID string, ok bool)

// RequireAuth dispatches to the configured auth mode for advisorID's
// route. AuthNone always passes through; the other two modes reject
// with 401 on failure.
func RequireAuth(mode AuthMode, resolveSecret SecretResolver, validateOAuth OAuthValidator) func(advisorID string, next http.Handler) http.Handler {
	return func(advisorID string, next http.Handler) http.Handler {
		switch mode {
		case AuthSecretBasic:
			return requireSecretBasic(advisorID, resolveSecret, next)
		case AuthGoogleOAuth:
			return requireGoogleOAuth(advisorID, validateOAuth, next)
		default:
			return withAdvisorID(advisorID, next)
		}
	}
}

func requireSecretBasic(advisorID string, resolveSecret SecretResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, hasAuth := r.BasicAuth()

		if resolveSecret == nil {
			bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			unauthorized(w)
			return
		}

		hash, found := resolveSecret(r.Context(), advisorID)
		if !found {
			bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			unauthorized(w)
			return
		}
		if !hasAuth || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			unauthorized(w)
			return
		}

		withAdvisorID(advisorID, next).ServeHTTP(w, r)
	})
}

func requireGoogleOAuth(advisorID string, validateOAuth OAuthValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if validateOAuth == nil {
			unauthorized(w)
			return
		}
		authenticatedID, ok := validateOAuth(r)
		if !ok || authenticatedID != advisorID {
			unauthorized(w)
			return
		}
		withAdvisorID(advisorID, next).ServeHTTP(w, r)
	})
}

func withAdvisorID(advisorID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), advisorIDKey, advisorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdvisorID retrieves the advisor ID authenticated by RequireAuth.
func AdvisorID(ctx context.Context) string {
	id, _ := ctx.Value(advisorIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="advisor portal"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
