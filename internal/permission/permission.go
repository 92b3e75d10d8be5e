// Package permission implements the write-precondition check every write
// operation runs before touching a repository (spec section on
// PermissionDenied: "the permission check is a precondition for every
// write; non-global writes require a non-null agentId"). Grounded on the
// teacher's pkg/auth/jwt.go JWT validator, generalized from an HTTP
// authentication middleware into a standalone precondition service that
// derives an agent's identity and role set once per request and answers
// write/read checks against it.
package permission

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// Identity is the agent derived from a request's bearer token (or, when no
// token is configured, the caller-supplied agentId trusted as-is).
type Identity struct {
	AgentID string
	Roles   []string
}

// HasRole reports whether role is present, case-insensitively.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Claims mirrors the subset of the teacher's JWT claims this service
// needs: subject (agent id) and a role list.
type Claims struct {
	AgentID string   `json:"sub"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// Config selects the signing method and trust parameters, same shape as
// the teacher's JWTConfig.
type Config struct {
	SigningMethod string // "RS256", "HS256", or "" to trust caller-supplied agentId unchecked
	PublicKeyPEM  string
	SecretKey     string
	Issuer        string
	Audience      []string
	// AdminRole, when non-empty, is the role name that bypasses scope/write
	// checks entirely (spec's permission service "denied the action
	// (read/write, scope, entryType)" implies some roles are unconditionally
	// permitted).
	AdminRole string
}

// Service derives an Identity from a bearer token and decides whether a
// write against a given scope is permitted.
type Service struct {
	cfg           Config
	signingMethod jwt.SigningMethod
	key           interface{}
}

// New constructs a Service. When cfg.SigningMethod is empty, token
// verification is skipped and Identify trusts its bearerToken argument as
// a raw agent id — used in single-tenant/local deployments where no JWT
// issuer is configured.
func New(cfg Config) (*Service, *apperrors.UnifiedError) {
	s := &Service{cfg: cfg}
	switch cfg.SigningMethod {
	case "":
		return s, nil
	case "RS256":
		s.signingMethod = jwt.SigningMethodRS256
		if cfg.PublicKeyPEM == "" {
			return nil, apperrors.NewValidation("permission.New", "public key required for RS256")
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, apperrors.NewValidation("permission.New", "failed to parse public key: "+err.Error())
		}
		s.key = key
	case "HS256":
		s.signingMethod = jwt.SigningMethodHS256
		if cfg.SecretKey == "" {
			return nil, apperrors.NewValidation("permission.New", "secret key required for HS256")
		}
		s.key = []byte(cfg.SecretKey)
	default:
		return nil, apperrors.NewValidation("permission.New", "unsupported signing method: "+cfg.SigningMethod)
	}
	return s, nil
}

// Identify validates bearerToken and returns the caller's Identity. When
// no signing method is configured, bearerToken is treated as a raw agent
// id with no roles.
func (s *Service) Identify(ctx context.Context, bearerToken string) (Identity, *apperrors.UnifiedError) {
	bearerToken = strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if s.cfg.SigningMethod == "" {
		return Identity{AgentID: bearerToken}, nil
	}
	if bearerToken == "" {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "missing authentication token")
	}

	token, err := jwt.ParseWithClaims(bearerToken, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != s.signingMethod {
			return nil, apperrors.NewPermissionDenied("permission.Identify", "unexpected signing method")
		}
		return s.key, nil
	})
	if err != nil {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "invalid token: "+err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "invalid token claims")
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "invalid issuer")
	}
	if len(s.cfg.Audience) > 0 && !audienceMatches(claims.Audience, s.cfg.Audience) {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "invalid audience")
	}
	if claims.AgentID == "" {
		return Identity{}, apperrors.NewPermissionDenied("permission.Identify", "token carries no agent id")
	}
	return Identity{AgentID: claims.AgentID, Roles: claims.Roles}, nil
}

func audienceMatches(got jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		for _, g := range got {
			if g == w {
				return true
			}
		}
	}
	return false
}

// CheckWrite enforces the write precondition: non-global scopes require a
// non-null agentId on the identity (spec: "non-global writes require a
// non-null agentId"); a global-scope write passes without one.
// Holders of cfg.AdminRole bypass the scope check.
func (s *Service) CheckWrite(id Identity, target scope.Scope) *apperrors.UnifiedError {
	if s.cfg.AdminRole != "" && id.HasRole(s.cfg.AdminRole) {
		return nil
	}
	if target.Type != scope.Global && id.AgentID == "" {
		return apperrors.NewPermissionDenied("permission.CheckWrite", "non-global writes require a non-null agentId")
	}
	return nil
}

// CheckRead enforces the read precondition. Reads are unrestricted by
// scope today; the hook exists so a future role model (spec's "permission
// service denied the action (read/write, scope, entryType)") has a single
// call site to extend.
func (s *Service) CheckRead(id Identity, target scope.Scope) *apperrors.UnifiedError {
	return nil
}
