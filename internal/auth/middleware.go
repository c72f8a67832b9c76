package auth

import (
	"net/http"
	"strings"
)

// Middleware authenticates bearer tokens and enforces the policy.
type Middleware struct {
	secret []byte
	policy Policy
}

// NewMiddleware constructs the middleware. An empty secret disables auth:
// the result is nil and its Wrap passes requests through.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	if len(secret) == 0 {
		return nil
	}
	return &Middleware{secret: secret, policy: policy}
}

// Wrap applies authentication and role checks to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, protected := m.policy.RequiredRole(r)
		if !protected {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="isolar"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !id.Role.Allows(required) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (Identity, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, ErrUnauthorized
	}
	claims, err := ParseJWT(strings.TrimSpace(token), m.secret)
	if err != nil {
		return Identity{}, err
	}
	role, _ := ParseRole(claims.Role)
	return Identity{TenantID: claims.TenantID, Role: role, Subject: claims.Subject}, nil
}
