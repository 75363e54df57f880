package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/middleware/csrf"
	"github.com/google/uuid"
)

const sessionLocal = "yayasan_session"

// Session is the per request view of one browser session
type Session struct {
	ID     string
	Store  yayasan.TokenStore
	Client *yayasan.APIClient
	Auth   *yayasan.AuthStore
}

// SessionFrom returns the session attached by the session middleware
func SessionFrom(c *fiber.Ctx) *Session {
	sess, _ := c.Locals(sessionLocal).(*Session)
	return sess
}

// sessionMiddleware resolves the browser session id, scopes the token
// store to it and reconciles the auth state once, before any guard runs.
func (s *Server) sessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(s.opts.CookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
		}
		// only the cookie is refreshed here, the stored session keeps the
		// lifetime it got at login
		s.setSessionCookie(c, sid)

		sess, err := s.openSession(sid)
		if err != nil {
			return err
		}
		sess.Auth.CheckAuth()
		s.attachSession(c, sess)

		return c.Next()
	}
}

// rotateSession moves the current session under a fresh id and reissues
// the cookie, so an id known before login never carries the login.
func (s *Server) rotateSession(c *fiber.Ctx) error {
	prev := SessionFrom(c)
	next, err := s.openSession(uuid.NewString())
	if err != nil {
		return err
	}

	if err := yayasan.MoveSession(next.Store, prev.Store); err != nil {
		return err
	}
	next.Auth.CheckAuth()

	s.setSessionCookie(c, next.ID)
	s.attachSession(c, next)
	s.logger.Debug("session %s rotated to %s", prev.ID, next.ID)
	return nil
}

func (s *Server) openSession(sid string) (*Session, error) {
	store := yayasan.ScopeTokenStore(s.opts.Store, sid)

	client, err := yayasan.NewAPIClient(s.opts.API, store,
		yayasan.WithHTTPClient(s.http),
		yayasan.WithClientLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []yayasan.AuthStoreOption{yayasan.WithLogger(s.logger)}
	if s.opts.CheckTokenExpiry {
		opts = append(opts, yayasan.WithTokenExpiryCheck(nil))
	}
	if s.opts.Activity != nil {
		opts = append(opts, yayasan.WithActivitySink(s.opts.Activity))
	}

	return &Session{
		ID:     sid,
		Store:  store,
		Client: client,
		Auth:   yayasan.NewAuthStore(client.Auth(), store, opts...),
	}, nil
}

func (s *Server) attachSession(c *fiber.Ctx, sess *Session) {
	c.Locals(csrf.DefaultSessionLocal, sess.ID)
	c.Locals(sessionLocal, sess)
}

func (s *Server) setSessionCookie(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.opts.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(s.opts.SessionTTL),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
