package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"casetrack.org/internal/auth"
)

func TestRequireRoleAllowsAdmin(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 1, Role: auth.RoleAdmin}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRoleRejectsInsufficientRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 2, Role: auth.RoleUser}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireRoleRejectsMissingUser(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("extractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("expected error for %q", tc.header)
		}
	}
}

func TestPublicPathsSkipAuth(t *testing.T) {
	for _, p := range []string{"/healthz", "/v1/auth/login", "/v1/auth/register", "/metrics"} {
		if !isPublicPath(p) {
			t.Fatalf("expected %s to be public", p)
		}
	}
	for _, p := range []string{"/v1/me", "/v1/users", "/v1/users/1"} {
		if isPublicPath(p) {
			t.Fatalf("expected %s to require authentication", p)
		}
	}
}
