package auth

import (
	"net/http"
	"strings"
)

// Rule grants access to requests whose path starts with Prefix. An empty
// Methods list matches every method.
type Rule struct {
	Prefix  string
	Methods []string
	Role    Role
}

func (r Rule) matches(method, path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// DefaultRules protects the production, performance and pvsyst APIs. Reads
// need viewer; uploads and computations need operator.
var DefaultRules = []Rule{
	{Prefix: "/api/v1/production/uploads", Role: RoleOperator},
	{Prefix: "/api/v1/production/parse", Role: RoleOperator},
	{Prefix: "/api/v1/production/reports", Methods: []string{http.MethodGet, http.MethodHead}, Role: RoleViewer},
	{Prefix: "/api/v1/production/reports", Role: RoleAdmin},
	{Prefix: "/api/v1/performance/", Role: RoleOperator},
	{Prefix: "/api/v1/pvsyst/", Role: RoleOperator},
	{Prefix: "/api/", Methods: []string{http.MethodGet, http.MethodHead}, Role: RoleViewer},
	{Prefix: "/api/", Role: RoleOperator},
}

// Policy maps requests to the role they require. The first matching rule wins.
type Policy struct {
	Exempt map[string]struct{}
	Rules  []Rule
}

// NewDefaultPolicy builds a policy over DefaultRules with exempt paths.
func NewDefaultPolicy(exemptPaths ...string) Policy {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		exempt[path] = struct{}{}
	}
	return Policy{Exempt: exempt, Rules: DefaultRules}
}

// RequiredRole resolves the role a request needs. ok is false for exempt
// paths, CORS preflights and paths no rule covers.
func (p Policy) RequiredRole(r *http.Request) (role Role, ok bool) {
	if r == nil || r.Method == http.MethodOptions {
		return "", false
	}
	if _, exempt := p.Exempt[r.URL.Path]; exempt {
		return "", false
	}
	for _, rule := range p.Rules {
		if rule.matches(r.Method, r.URL.Path) {
			return rule.Role, true
		}
	}
	return "", false
}
