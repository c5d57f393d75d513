package identity

import (
	"strings"

	"backend-tweeter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const viewerLocal = "viewer"

// Claims is the session token the identity provider issues. Subject
// carries the external identity id.
type Claims struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) external() ExternalIdentity {
	return ExternalIdentity{
		ID:        c.Subject,
		Username:  c.Username,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		AvatarURL: c.AvatarURL,
	}
}

var parseClaimsFn = jwt.ParseWithClaims

// RequireViewer rejects requests without a valid session token and
// stores the resolved local user in locals.
func RequireViewer(svc *Service, secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromHeader(c.Get("Authorization"), secretBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		viewer, err := svc.Resolve(c.Context(), claims.external())
		if err != nil {
			return apperr.ToFiber(err)
		}

		c.Locals(viewerLocal, viewer)
		return c.Next()
	}
}

// OptionalViewer resolves the viewer when a valid token is present and
// lets anonymous requests through untouched.
func OptionalViewer(svc *Service, secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromHeader(c.Get("Authorization"), secretBytes)
		if err != nil {
			return c.Next()
		}

		viewer, err := svc.Resolve(c.Context(), claims.external())
		if err != nil {
			return apperr.ToFiber(err)
		}

		c.Locals(viewerLocal, viewer)
		return c.Next()
	}
}

// ViewerFrom returns the viewer stored by the middleware, if any.
func ViewerFrom(c *fiber.Ctx) (User, bool) {
	viewer, ok := c.Locals(viewerLocal).(User)
	return viewer, ok
}

func claimsFromHeader(header string, secret []byte) (*Claims, error) {
	token := bearerFromHeader(header)
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}

	parsed, err := parseClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
