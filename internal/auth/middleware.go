package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/domain"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and attaches the actor to the request.
type Middleware struct {
	verifier *TokenVerifier
}

// NewMiddleware constructs the middleware.
func NewMiddleware(verifier *TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	actor, err := m.verifier.Verify(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
