package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/lifecycle"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const principalKey = "auth_principal"

// ServicePrincipalID identifies callers holding the static service token.
const ServicePrincipalID = "service"

// Principal represents the authenticated caller.
type Principal struct {
	ID     string
	Role   domain.Role
	Porter *domain.Porter
}

// Actor converts the principal for lifecycle checks.
func (p *Principal) Actor() lifecycle.Actor {
	return lifecycle.Actor{ID: p.ID, Role: p.Role}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens       *TokenManager
	porters      repository.PorterRepository
	serviceToken string
}

// NewAuthMiddleware constructs middleware. An empty serviceToken disables
// service authentication.
func NewAuthMiddleware(tokens *TokenManager, porters repository.PorterRepository, serviceToken string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, porters: porters, serviceToken: serviceToken}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	return m.authenticate(c, strings.TrimSpace(parts[1]))
}

// HandleQuery authenticates with the token query parameter, falling back to
// the Authorization header. Browsers cannot set headers on websocket upgrades.
func (m *AuthMiddleware) HandleQuery(c *fiber.Ctx) error {
	if token := c.Query("token"); token != "" {
		return m.authenticate(c, token)
	}
	return m.Handle(c)
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, token string) error {
	if token == "" {
		return apperrors.NewUnauthorized("missing token")
	}
	if m.serviceToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.serviceToken)) == 1 {
		c.Locals(principalKey, &Principal{ID: ServicePrincipalID, Role: domain.RoleService})
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{ID: claims.Subject, Role: claims.Role}
	if claims.Role != domain.RoleService {
		porter, err := m.porters.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("porter not found")
			}
			return apperrors.MapError(err)
		}
		if !porter.Active {
			return apperrors.NewUnauthorized("account disabled")
		}
		principal.Porter = porter
		principal.Role = porter.Role
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
