package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"security-console/internal/domain"
)

type Mode string

const (
	ModeNone     Mode = "none"
	ModeSimple   Mode = "simple"
	ModeKeycloak Mode = "keycloak"
)

// ParseAuthMode defaults to simple when raw is empty.
func ParseAuthMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return ModeSimple, nil
	case ModeNone, ModeSimple, ModeKeycloak:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid auth mode %q", raw)
	}
}

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

const principalKey = "principal"

type principalCtxKey struct{}

// anonymousAdmin is the caller when authentication is switched off.
var anonymousAdmin = domain.Principal{Username: "anonymous", IsAdmin: true}

// AuthMiddleware authenticates every request it wraps. In none mode all
// callers act as an administrator.
func AuthMiddleware(mode Mode, verifier TokenVerifier) (echo.MiddlewareFunc, error) {
	switch mode {
	case ModeNone:
	case ModeSimple, ModeKeycloak:
		if verifier == nil {
			return nil, fmt.Errorf("a token verifier is required when AUTH_MODE=%s", mode)
		}
	default:
		return nil, errors.New("invalid auth mode")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if mode == ModeNone {
				setPrincipal(c, anonymousAdmin)
				return next(c)
			}
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization token"})
			}
			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if tokenString == "" || tokenString == authHeader {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization token"})
			}
			principal, err := verifier.Verify(c.Request().Context(), tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			setPrincipal(c, principal)
			return next(c)
		}
	}, nil
}

// RequireAdmin rejects authenticated callers without the admin flag.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthenticated.Error()})
		}
		if !p.IsAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{"error": domain.ErrPermissionDeny.Error()})
		}
		return next(c)
	}
}

func setPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
	ctx := context.WithValue(c.Request().Context(), principalCtxKey{}, p)
	c.SetRequest(c.Request().WithContext(ctx))
}

func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// PrincipalFromContext reads the caller set by AuthMiddleware from a request
// context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return p, ok
}
