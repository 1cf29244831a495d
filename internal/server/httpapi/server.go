// Package httpapi exposes the account API over HTTP using fiber.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/ratelimit"
	"github.com/dmitrijs2005/gophid/internal/server/avatars"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Identity is the part of services.IdentityService the handlers use.
type Identity interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Profile, error)
	Verify(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, accountID string) error
	UpdateProfile(ctx context.Context, accountID string, patch models.ProfilePatch) (*models.Account, error)
	CurrentProfile(ctx context.Context, accountID string) (*services.Profile, error)
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

type AvatarAcceptor interface {
	Accept(ctx context.Context, up services.AvatarUpload) (string, error)
}

type Options struct {
	Address        string
	Identity       Identity
	Avatars        AvatarAcceptor
	Logger         logging.Logger
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.KeyLimiter
	RequestTimeout time.Duration
	TempDir        string
	PublicOrigin   string
	// AvatarDir is served under /avatars when set.
	AvatarDir string
}

type Server struct {
	address      string
	app          *fiber.App
	identity     Identity
	avatars      AvatarAcceptor
	logger       logging.Logger
	tempDir      string
	publicOrigin string
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("module", "http_server")

	s := &Server{
		address:      opts.Address,
		identity:     opts.Identity,
		avatars:      opts.Avatars,
		logger:       logger,
		tempDir:      opts.TempDir,
		publicOrigin: opts.PublicOrigin,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "gophid",
		DisableStartupMessage: true,
		BodyLimit:             4 * common.AvatarMaxBytes,
		ErrorHandler:          errorHandler(logger),
	})

	s.routes(opts)

	return s
}

func (s *Server) routes(opts Options) {
	app := s.app

	app.Use(accessLog(s.logger, opts.Metrics))
	app.Use(requestTimeout(opts.RequestTimeout))

	app.Get("/health", health)
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	if opts.AvatarDir != "" {
		app.Static(avatars.URLPrefix, opts.AvatarDir)
	}

	limited := rateLimit(opts.Limiter)
	auth := authenticate(s.identity)

	users := app.Group("/users")
	users.Post("/signup", limited, s.signup)
	users.Get("/verify/:token", s.verify)
	users.Post("/verify", limited, s.resendVerification)
	users.Post("/login", limited, s.login)
	users.Get("/current", auth, s.current)
	users.Post("/logout", auth, s.logout)
	users.Patch("/update", auth, s.update)
	users.Patch("/avatars", auth, s.uploadAvatar)
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.app.Listen(s.address); err != nil {
		return err
	}

	return nil
}
