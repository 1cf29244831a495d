// Package server wires the gophid components together: storage, mail,
// avatar handling and the HTTP API. It also owns graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophid/internal/filex"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/ratelimit"
	"github.com/dmitrijs2005/gophid/internal/server/avatars"
	"github.com/dmitrijs2005/gophid/internal/server/config"
	"github.com/dmitrijs2005/gophid/internal/server/httpapi"
	"github.com/dmitrijs2005/gophid/internal/server/mail"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophid/internal/server/services"
)

const (
	outboxDrainTimeout = 10 * time.Second
	rateLimitIdleTTL   = 10 * time.Minute
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	rm      repomanager.RepositoryManager
	outbox  *mail.Outbox
	server  *httpapi.Server
	metrics *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureSubdDir(c.TempDir); err != nil {
		return nil, fmt.Errorf("temp dir error: %w", err)
	}

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	storage, avatarDir, err := newAvatarStorage(ctx, c)
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("avatar storage error: %w", err)
	}

	m := metrics.New()
	app := &App{config: c, logger: logger, rm: rm, metrics: m}

	var dispatcher mail.Dispatcher = newDispatcher(c, logger)
	if c.MailAsync {
		app.outbox = mail.NewOutbox(dispatcher, logger,
			mail.WithQueueSize(c.MailQueueSize),
			mail.WithDeliveryTimeout(c.MailTimeout),
			mail.WithMetrics(m),
		)
		dispatcher = app.outbox
	}

	identity := services.NewIdentityService(rm, dispatcher, services.UUIDTokenIssuer{}, c, logger, m)
	pipeline := services.NewAvatarPipeline(rm, storage, c, logger, m)

	app.server = httpapi.NewServer(httpapi.Options{
		Address:        c.EndpointAddr,
		Identity:       identity,
		Avatars:        pipeline,
		Logger:         logger,
		Metrics:        m,
		Limiter:        ratelimit.New(c.RateLimitRPS, c.RateLimitBurst, rateLimitIdleTTL),
		RequestTimeout: c.RequestTimeout,
		TempDir:        c.TempDir,
		PublicOrigin:   c.PublicOrigin,
		AvatarDir:      avatarDir,
	})

	return app, nil
}

// newRepositoryManager picks PostgreSQL when a DSN is configured and the
// in-memory store otherwise.
func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
}

// newAvatarStorage returns the configured backend and, for disk storage,
// the directory the HTTP server should expose.
func newAvatarStorage(ctx context.Context, c *config.Config) (avatars.Storage, string, error) {
	switch c.AvatarBackend {
	case config.AvatarBackendS3:
		s, err := avatars.NewS3Storage(ctx, avatars.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		return s, "", err
	case config.AvatarBackendDisk, "":
		s, err := avatars.NewDiskStorage(c.AvatarDir)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	}
	return nil, "", fmt.Errorf("unknown avatar backend %q", c.AvatarBackend)
}

func newDispatcher(c *config.Config, logger logging.Logger) mail.Dispatcher {
	if c.MailHost == "" {
		return mail.NewLogDispatcher(logger)
	}
	return mail.NewSMTPDispatcher(mail.SMTPConfig{
		Host:     c.MailHost,
		Port:     c.MailPort,
		Username: c.MailUser,
		Password: c.MailPassword,
		From:     c.Sender(),
		Timeout:  c.MailTimeout,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is cancelled, then
// drains the mail outbox and closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), outboxDrainTimeout)
	defer cancel()

	if app.outbox != nil {
		if err := app.outbox.Close(ctx); err != nil {
			app.logger.Error(ctx, "outbox drain", "error", err)
		}
	}
	if err := app.rm.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
