// Package middleware contains the request-scoped guards: cookie
// authentication with silent refresh, role authorization, and rate
// limiting.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/service"
	"github.com/edugenius/edugenius-api/internal/token"
)

// Cookie names shared with the browser client.
const (
	AccessCookie  = "acc_t"
	RefreshCookie = "ref_t"
)

// identityKey is the echo context key the guard stores the caller under.
const identityKey = "auth_identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	Email            string
	Role             string
	RegisterProvider string
	Jit              string
}

// CurrentUser returns the identity the guard attached to this request.
func CurrentUser(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// Guard enforces authentication on protected routes.  It verifies the
// access token from the acc_t cookie against the codec and the ledger; an
// expired-but-authentic token is transparently rotated through the session
// manager's refresh flow, so callers never re-authenticate while their
// refresh token lives.
type Guard struct {
	codec         *token.Codec
	ledger        service.Ledger
	auth          *service.AuthService
	secureCookies bool
	refreshTTL    time.Duration
}

func NewGuard(codec *token.Codec, ledger service.Ledger, auth *service.AuthService, secureCookies bool, refreshTTL time.Duration) *Guard {
	return &Guard{
		codec:         codec,
		ledger:        ledger,
		auth:          auth,
		secureCookies: secureCookies,
		refreshTTL:    refreshTTL,
	}
}

// Authenticate returns the middleware enforcing the token checks.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessToken := cookieValue(c, AccessCookie)
			if accessToken == "" {
				return apperror.New(apperror.Unauthorized, "Access token is required")
			}

			claims, err := g.codec.Verify(accessToken, token.Access)
			switch {
			case err == nil:
				// Signature validity is necessary but not sufficient: the
				// ledger is the authority on revocation.
				exists, lerr := g.ledger.Exists(c.Request().Context(), claims.Email, accessToken, claims.Jit)
				if lerr != nil {
					// Never fail open when the ledger is unreachable.
					return apperror.Wrap(apperror.ServerError, "Failed to check access token", lerr)
				}
				if !exists {
					return apperror.New(apperror.Unauthorized, "Access token is revoked")
				}
				attachIdentity(c, claims)
				return next(c)

			case errors.Is(err, token.ErrExpired):
				return g.refresh(c, next, accessToken)

			default:
				// A malformed or forged token is never eligible for refresh.
				return apperror.New(apperror.Unauthorized, "Invalid access token")
			}
		}
	}
}

// refresh runs the silent rotation sub-flow for an authentic but expired
// access token, then continues the chain as authenticated.
func (g *Guard) refresh(c echo.Context, next echo.HandlerFunc, staleAccess string) error {
	refreshToken := cookieValue(c, RefreshCookie)
	if refreshToken == "" {
		return apperror.New(apperror.Unauthorized, "Invalid refresh token")
	}

	claims, pair, err := g.auth.Refresh(c.Request().Context(), staleAccess, refreshToken)
	if err != nil {
		return err
	}

	SetAuthCookies(c, pair.AccessToken, pair.RefreshToken, g.secureCookies, g.refreshTTL)
	attachIdentity(c, claims)
	return next(c)
}

// RequireRole returns a middleware enforcing that the authenticated caller
// holds one of the given roles.  It must run after Authenticate; reaching
// it without an identity is a route-composition bug and is rejected.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentUser(c)
			if !ok {
				return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
			}
			if !allowed[id.Role] {
				return apperror.New(apperror.Forbidden, "You do not have permission to access this resource.")
			}
			return next(c)
		}
	}
}

// SetAuthCookies installs the session cookies.  Both are http-only and
// cross-site-restricted; only ref_t carries a max-age, acc_t is
// session-length with its real expiry inside the token.
func SetAuthCookies(c echo.Context, accessToken, refreshToken string, secure bool, refreshTTL time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookie,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearAuthCookies expires both session cookies.
func ClearAuthCookies(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func attachIdentity(c echo.Context, claims *token.Claims) {
	c.Set(identityKey, Identity{
		Email:            claims.Email,
		Role:             claims.Role,
		RegisterProvider: claims.RegisterProvider,
		Jit:              claims.Jit,
	})
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
