package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy("/healthz"))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/production/reports", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ViewerForbiddenUpload(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", RoleViewer)
	mw := NewMiddleware(secret, NewDefaultPolicy())
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/production/uploads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ViewerReadsReportsWithIdentity(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", RoleViewer)
	mw := NewMiddleware(secret, NewDefaultPolicy())
	var tenant string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant = TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/production/reports/r-1/export.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || tenant != "tenant-a" {
		t.Fatalf("expected 200 with tenant, got %d %q", resp.Code, tenant)
	}
}

func TestAuthMiddleware_ExemptAndDisabled(t *testing.T) {
	mw := NewMiddleware([]byte("s"), NewDefaultPolicy("/healthz", "/metrics"))
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected exempt path, got %d", resp.Code)
	}

	disabled := NewMiddleware(nil, NewDefaultPolicy())
	if disabled != nil {
		t.Fatalf("expected nil middleware without secret")
	}
	resp = httptest.NewRecorder()
	disabled.Wrap(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/production/uploads", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", resp.Code)
	}
}

func TestIssueAndParseJWT(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueJWT(secret, "tenant-a", RoleAdmin, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseJWT(token, []byte("other")); err == nil {
		t.Fatalf("expected signature error")
	}
	claims, err := ParseJWT(token, secret)
	if err != nil || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v %v", claims, err)
	}
	if _, err := IssueJWT(secret, "tenant-a", Role("root"), "", time.Hour); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestRoleAllows(t *testing.T) {
	cases := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleOperator, true},
		{RoleOperator, RoleOperator, true},
		{RoleViewer, RoleOperator, false},
		{Role("guest"), RoleViewer, false},
	}
	for _, tc := range cases {
		if got := tc.role.Allows(tc.required); got != tc.want {
			t.Fatalf("%s allows %s: expected %v", tc.role, tc.required, tc.want)
		}
	}
	if role, ok := ParseRole(" Operator "); !ok || role != RoleOperator {
		t.Fatalf("expected operator, got %q %v", role, ok)
	}
}

func TestPolicyRequiredRole(t *testing.T) {
	policy := NewDefaultPolicy("/api/v1/public")
	cases := []struct {
		method string
		path   string
		role   Role
		ok     bool
	}{
		{http.MethodPost, "/api/v1/production/uploads", RoleOperator, true},
		{http.MethodGet, "/api/v1/production/reports/r-1", RoleViewer, true},
		{http.MethodDelete, "/api/v1/production/reports/r-1", RoleAdmin, true},
		{http.MethodPost, "/api/v1/performance/rpr", RoleOperator, true},
		{http.MethodGet, "/api/v1/other", RoleViewer, true},
		{http.MethodOptions, "/api/v1/production/uploads", "", false},
		{http.MethodGet, "/api/v1/public", "", false},
		{http.MethodGet, "/healthz", "", false},
	}
	for _, tc := range cases {
		role, ok := policy.RequiredRole(httptest.NewRequest(tc.method, tc.path, nil))
		if role != tc.role || ok != tc.ok {
			t.Fatalf("%s %s: expected %q %v, got %q %v", tc.method, tc.path, tc.role, tc.ok, role, ok)
		}
	}
}

func TestAuthMiddleware_RejectsNonBearer(t *testing.T) {
	mw := NewMiddleware([]byte("s"), NewDefaultPolicy())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/production/reports", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized || resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected 401 with challenge, got %d", resp.Code)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mustToken(t *testing.T, secret []byte, tenantID string, role Role) string {
	t.Helper()
	signed, err := IssueJWT(secret, tenantID, role, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
