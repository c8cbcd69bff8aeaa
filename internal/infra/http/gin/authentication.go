package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/services/auth"
	domainauth "shortlet/internal/domain/auth"
	domainuser "shortlet/internal/domain/user"
)

const principalContextKey = "shortlet.principal"

const (
	roleGuest   = string(domainuser.RoleGuest)
	roleRealtor = string(domainuser.RoleRealtor)
	roleAdmin   = string(domainuser.RoleAdmin)
)

// principal is the authenticated caller of a request.
type principal struct {
	ID        string
	Email     string
	Name      string
	Roles     []string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func newPrincipal(resolved *auth.ResolveResult, token string) principal {
	user := resolved.User
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	p := principal{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		Roles:     roles,
		Token:     token,
		CreatedAt: user.CreatedAt,
	}
	if resolved.Session != nil {
		p.ExpiresAt = resolved.Session.ExpiresAt
	}
	return p
}

func (p principal) HasRole(role string) bool {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, r := range p.Roles {
		if want != "" && strings.ToLower(r) == want {
			return true
		}
	}
	return false
}

// AuthMiddleware resolves bearer tokens into a principal. Requests without a
// valid token continue anonymously and are stopped by requireRole; blocked
// accounts are rejected here.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Set(principalContextKey, newPrincipal(resolved, token))
	case errors.Is(err, domainuser.ErrBlocked):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domainauth.ErrSessionNotFound):
	default:
		if m.Logger != nil {
			m.Logger.Warn("token resolution failed", "error", err, "request_id", c.GetString("request_id"))
		}
	}
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireRole writes 401 for anonymous callers and 403 when role is set and
// missing. An empty role admits any signed-in user.
func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
