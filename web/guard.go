package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
)

// RequireAccount renders the wrapped routes only for the required account
// type. Anonymous visitors go to the matching login page with the
// rejected path remembered, the wrong type goes home.
func (s *Server) RequireAccount(required yayasan.AccountType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := yayasan.AnonymousState()
		if sess := SessionFrom(c); sess != nil {
			state = sess.Auth.State()
		}

		d := yayasan.Guard(state, required, s.routes)
		switch d.Outcome {
		case yayasan.GuardAllow:
			return c.Next()
		case yayasan.GuardRedirectLogin:
			s.SetRedirect(c)
			return c.Redirect(d.Redirect, fiber.StatusSeeOther)
		default:
			return c.Redirect(d.Redirect, fiber.StatusSeeOther)
		}
	}
}

// SetRedirect remembers the current path so login can send the user back
func (s *Server) SetRedirect(c *fiber.Ctx) {
	if c.Method() != fiber.MethodGet {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     RejectedRouteCookie,
		Value:    c.OriginalURL(),
		Path:     "/",
		Expires:  time.Now().Add(rejectedRouteTimeout),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// GetRedirectOrDefault returns the remembered path, or def, and forgets it
func (s *Server) GetRedirectOrDefault(c *fiber.Ctx, def string) string {
	r := c.Cookies(RejectedRouteCookie)
	s.cookieDel(c, RejectedRouteCookie)

	if !isLocalPath(r) {
		return def
	}
	return r
}

func (s *Server) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
	})
}

// only same origin paths, "//host" and "/\host" are treated as absolute
func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
