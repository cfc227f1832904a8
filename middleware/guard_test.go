package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hermesgsc/authcore"
	"github.com/hermesgsc/authcore/identity"
	"github.com/hermesgsc/authcore/middleware"
	"github.com/hermesgsc/authcore/refresh"
)

func newGuardTestEngine(t *testing.T) (*authcore.Engine, *identity.MemoryStore) {
	t.Helper()

	identities := identity.NewMemoryStore()

	engine, err := authcore.New().
		WithSecret([]byte("0123456789abcdef0123456789abcdef")).
		WithTokenStore(refresh.NewMemoryStore()).
		WithIdentityStore(identities).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, identities
}

func register(t *testing.T, engine *authcore.Engine, email string) *authcore.Credentials {
	t.Helper()

	creds, err := engine.Register(context.Background(), "Test", email, "pw1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return creds
}

func echoIdentity(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			t.Error("guarded handler reached without identity in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Identity", ident.ID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAllowsValidToken(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	creds := register(t, engine, "a@x.com")

	handler := middleware.Guard(engine)(echoIdentity(t))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Identity"); got != creds.Identity.ID {
		t.Fatalf("identity = %q, want %q", got, creds.Identity.ID)
	}
}

func TestGuardRejects(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	creds := register(t, engine, "a@x.com")

	handler := middleware.Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached on rejected request")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + creds.AccessToken},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer garbage"},
		{"lowercase scheme", "bearer " + creds.AccessToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	engine, identities := newGuardTestEngine(t)

	user := register(t, engine, "user@x.com")
	admin := register(t, engine, "admin@x.com")

	role := authcore.RoleAdmin
	if _, err := identities.Update(context.Background(), admin.Identity.ID, authcore.IdentityPatch{Role: &role}); err != nil {
		t.Fatal(err)
	}
	adminAccess, err := engine.Refresh(context.Background(), admin.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}

	handler := middleware.Guard(engine)(middleware.RequireAdmin()(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(user.AccessToken); code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", code)
	}
	if code := send(adminAccess); code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", code)
	}
	if code := send(""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", code)
	}
}

func TestRequireRoleWithoutGuard(t *testing.T) {
	handler := middleware.RequireRole(authcore.RoleUser)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler reached without identity")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIdentityFromContextEmpty(t *testing.T) {
	if _, ok := middleware.IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity in empty context")
	}
}
