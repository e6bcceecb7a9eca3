package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

var (
	// ErrMissingToken is returned when no token is presented at handshake.
	ErrMissingToken = errors.New("authentication failed: no token provided")
	// ErrInvalidToken is returned when signature or expiry verification fails.
	ErrInvalidToken = errors.New("authentication failed: invalid token")
	// ErrInvalidRole is returned when the verified role is neither ADMIN nor USER.
	ErrInvalidRole = errors.New("authentication failed: invalid role")
)

// Identity is the verified claim bound to a connection for its lifetime.
type Identity struct {
	ID    string
	Email string
	Role  store.Role
}

// IsAdmin reports whether the identity holds the ADMIN role.
func (i Identity) IsAdmin() bool {
	return i.Role == store.RoleAdmin
}

// Gate verifies bearer tokens presented by connecting clients.
type Gate struct {
	cfg *JWTConfig
}

// NewGate creates a gate checking tokens against cfg.
func NewGate(cfg *JWTConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Authenticate turns a raw bearer token into an Identity.
func (g *Gate) Authenticate(rawToken string) (Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Identity{}, ErrMissingToken
	}

	claims, err := ValidateToken(g.cfg, rawToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}

	role := store.Role(claims.Role)
	if !role.Valid() {
		return Identity{}, ErrInvalidRole
	}

	return Identity{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  role,
	}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
