package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// Decision is the outcome of the authorization gate.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionDeniedUnauthenticated
	DecisionDeniedWrongRole
	DecisionGranted
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	ReturnParam      = "return"
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionDeniedUnauthenticated:
		return "denied_unauthenticated"
	case DecisionDeniedWrongRole:
		return "denied_wrong_role"
	case DecisionGranted:
		return "granted"
	}
	return "unknown"
}

// Decide evaluates, in order: loading, missing identity, role membership.
// An empty allowed set admits any authenticated role.
func Decide(loading bool, identity *Identity, allowed []Role) Decision {
	if loading {
		return DecisionPending
	}
	if identity == nil {
		return DecisionDeniedUnauthenticated
	}
	if len(allowed) > 0 && !containsRole(allowed, identity.Role) {
		return DecisionDeniedWrongRole
	}
	return DecisionGranted
}

// LoginRedirect builds the login location that remembers the requested page.
func LoginRedirect(requested *url.URL) string {
	if requested == nil || requested.Path == "" {
		return LoginPath
	}
	target := requested.Path
	if requested.RawQuery != "" {
		target += "?" + requested.RawQuery
	}
	return LoginPath + "?" + url.Values{ReturnParam: {target}}.Encode()
}

// ReturnLocation extracts a safe, same-origin return path from the request, or "".
func ReturnLocation(r *http.Request) string {
	ret := r.URL.Query().Get(ReturnParam)
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") || strings.Contains(ret, "\\") {
		return ""
	}
	return ret
}

func containsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
