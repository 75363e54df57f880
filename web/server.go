// Package web is the server rendered front. It keeps one Token Store
// scope per browser and evaluates the route guard on every request.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/middleware/csrf"
)

//go:embed views
var viewsFS embed.FS

const (
	DefaultCookieName    = "yayasan_sid"
	DefaultSessionTTL    = 12 * time.Hour
	RejectedRouteCookie  = "yayasan_rejected_route"
	rejectedRouteTimeout = 5 * time.Minute
	layout               = "layouts/main"
)

// Options configures the web front
type Options struct {
	// Store is the backing store, scoped per browser session
	Store yayasan.TokenStore
	// API locates the backend
	API              yayasan.Config
	Routes           yayasan.GuardRoutes
	CookieName       string
	CookieSecure     bool
	SessionTTL       time.Duration
	CSRFKey          []byte
	HTTPClient       *http.Client
	Logger           yayasan.Logger
	Views            fiber.Views
	CheckTokenExpiry bool
	// Activity receives login, logout and expiry events of every browser
	Activity yayasan.ActivitySink
}

// Server hosts the public, applicant and admin branches
type Server struct {
	app    *fiber.App
	opts   Options
	routes yayasan.GuardRoutes
	http   *http.Client
	logger yayasan.Logger
}

// New builds the fiber app and registers every route
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, goerrors.New("web: token store is required", goerrors.CategoryBadInput)
	}
	if opts.API == nil {
		return nil, goerrors.New("web: API config is required", goerrors.CategoryBadInput)
	}

	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = yayasan.NopLogger()
	}

	s := &Server{
		opts:   opts,
		routes: opts.Routes.WithDefaults(),
		http:   opts.HTTPClient,
		logger: opts.Logger,
	}

	if s.http == nil {
		timeout := opts.API.GetRequestTimeout()
		if timeout <= 0 {
			timeout = yayasan.DefaultRequestTimeout
		}
		s.http = &http.Client{Timeout: timeout}
	}

	views := opts.Views
	if views == nil {
		sub, err := fs.Sub(viewsFS, "views")
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "web: unable to scope embedded views")
		}
		views = django.NewFileSystem(http.FS(sub), ".html")
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "yayasan",
		Views:                 views,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use(s.sessionMiddleware())
	s.app.Use(csrf.New(csrf.Config{
		SecureKey:  opts.CSRFKey,
		Expiration: opts.SessionTTL,
	}))

	s.registerRoutes()

	return s, nil
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info("web front listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	app := s.app

	app.Get("/", s.home)
	app.Get("/berita", s.newsIndex)
	app.Get("/berita/:id", s.newsShow)
	app.Get("/galeri", s.gallery)
	app.Get("/profil", s.profilePage)
	app.Get("/kontak", s.contactShow)
	app.Post("/kontak", s.contactCreate)
	app.Get("/pendaftaran", s.admissionInfo)

	app.Get("/login", s.applicantLoginShow)
	app.Post("/login", s.applicantLoginPost)
	app.Get("/signin", s.applicantLoginShow)
	app.Post("/signin", s.applicantLoginPost)
	app.Get("/register", s.registerShow)
	app.Post("/register", s.registerPost)
	app.Get("/logout", s.logout)
	app.Post("/logout", s.logout)

	// outside the admin guard, registered before the group
	app.Get(s.routes.AdminLogin, s.adminLoginShow)
	app.Post(s.routes.AdminLogin, s.adminLoginPost)

	applicant := app.Group("/pendaftar", s.RequireAccount(yayasan.AccountApplicant))
	applicant.Get("/", s.applicantDashboard)
	applicant.Get("/formulir", s.admissionFormShow)
	applicant.Post("/formulir", s.admissionFormPost)
	applicant.Get("/profil", s.applicantProfile)

	admin := app.Group("/admin", s.RequireAccount(yayasan.AccountAdmin))
	admin.Get("/", s.adminDashboard)
	admin.Get("/profil", s.adminProfileShow)
	admin.Post("/profil", s.adminProfilePost)
	admin.Get("/konfigurasi", s.adminSiteConfig)
	admin.Post("/konfigurasi", s.adminSiteConfigPost)
	admin.Post("/upload", s.adminUpload)
	admin.Get("/:resource", s.adminResource)
}

// render adds the session snapshot, the csrf token and the guard routes
// to every view
func (s *Server) render(c *fiber.Ctx, view string, data fiber.Map) error {
	return c.Render(view, s.withTemplateHelpers(c, data), layout)
}

// errorHandler turns an expired session into a redirect to the login
// route. Everything else renders the error page with the status carried
// by the error.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if yayasan.IsSessionExpired(err) {
		var auth *yayasan.AuthStore
		if sess := SessionFrom(c); sess != nil {
			auth = sess.Auth
		}

		s.SetRedirect(c)
		handler := yayasan.NewSessionExpiryHandler(auth, yayasan.NavigatorFunc(func(path string) error {
			return c.Redirect(path, fiber.StatusSeeOther)
		}))
		handler.LoginPath = s.routes.AdminLogin
		handler.Logger = s.logger

		if _, navErr := handler.Handle(err); navErr != nil {
			s.logger.Error("session expiry redirect failed: %s", navErr)
			return c.Status(fiber.StatusUnauthorized).SendString("session expired")
		}
		return nil
	}

	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		code = yayasan.StatusCode(err)
		message = yayasan.Message(err)
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("%s %s: %s", c.Method(), c.OriginalURL(), err)
	}

	if rerr := s.render(c.Status(code), "error", fiber.Map{
		"code":    code,
		"message": message,
	}); rerr != nil {
		s.logger.Error("failed to render error page: %s", rerr)
		return c.Status(code).SendString(message)
	}
	return nil
}
