package session

import "strings"

// Role is the account role assigned by the upstream backend.
type Role string

const (
	RoleAE       Role = "ae"       // accommodation establishment operator
	RoleDOT      Role = "dot"      // department head office
	RoleProvince Role = "province" // provincial office
	RoleUnknown  Role = ""
)

// ParseRole normalizes an upstream role string. Unrecognized roles map to
// RoleUnknown rather than being guessed.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ae":
		return RoleAE
	case "dot":
		return RoleDOT
	case "province":
		return RoleProvince
	default:
		return RoleUnknown
	}
}

// State is the current session snapshot. Loading is true while a stored
// token is still being resolved.
type State struct {
	Authenticated    bool `json:"authenticated"`
	Role             Role `json:"role,omitempty"`
	Loading          bool `json:"loading"`
	HasStoredToken   bool `json:"has_stored_token"`
	LogoutInProgress bool `json:"logout_in_progress"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        Role   `json:"role"`
}

// storedSession is what we persist under the access token key: the upstream
// token for proxying plus our own session JWT.
type storedSession struct {
	Upstream string `json:"upstream"`
	Token    string `json:"token"`
}

// ErrorResponse is the error envelope shared by all handlers.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
