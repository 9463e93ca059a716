// Package server initializes and runs the feedback server: it opens
// PostgreSQL and the media backend, applies migrations, handles graceful
// shutdown and starts the HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/feedbackd/internal/logging"
	"github.com/dmitrijs2005/feedbackd/internal/server/config"
	"github.com/dmitrijs2005/feedbackd/internal/server/httpapi"
	"github.com/dmitrijs2005/feedbackd/internal/server/intake"
	"github.com/dmitrijs2005/feedbackd/internal/server/media"
	"github.com/dmitrijs2005/feedbackd/internal/server/ratelimit"
	"github.com/dmitrijs2005/feedbackd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedbackd/internal/server/services"
)

// Seams for tests.
var (
	openDB = repomanager.OpenPostgres

	newRepositoryManager = repomanager.NewPostgresRepositoryManager

	openRedis = ratelimit.Open
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	store     media.Store
	staticDir string
	limiter   ratelimit.Limiter
	closers   []io.Closer

	userService     *services.UserService
	feedbackService *services.FeedbackService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.AppEnv)

	app := &App{config: c, logger: logger}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	if err := app.initMediaStore(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("media store init error: %w", err)
	}

	if err := app.initLimiter(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("rate limiter init error: %w", err)
	}

	app.userService = services.NewUserService(db, rm, c)
	app.feedbackService = services.NewFeedbackService(db, rm, app.store, logger)

	return app, nil
}

func (app *App) initMediaStore(ctx context.Context) error {
	switch app.config.MediaBackend {
	case config.MediaBackendLocal, "":
		s, err := media.NewLocalStore(app.config.UploadDir, app.config.StaticBaseURL)
		if err != nil {
			return err
		}
		app.store, app.staticDir = s, s.Dir()
	case config.MediaBackendS3:
		s, err := media.NewS3Store(ctx, media.S3Config{
			AccessKey:    app.config.S3RootUser,
			SecretKey:    app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
		if err != nil {
			return err
		}
		app.store = s
	default:
		return fmt.Errorf("unknown media backend %q", app.config.MediaBackend)
	}

	app.logger.Info(ctx, "Media store ready", "backend", app.config.MediaBackend)
	return nil
}

// initLimiter connects to Redis when an address is configured. Without one
// the auth endpoints are not rate limited.
func (app *App) initLimiter(ctx context.Context) error {
	if app.config.RedisAddr == "" {
		return nil
	}

	client, err := openRedis(ctx, app.config.RedisAddr, app.config.RedisPassword)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, client)

	l, err := ratelimit.NewRedisLimiter(client, "ratelimit", app.config.AuthRateLimit, app.config.AuthRateWindow)
	if err != nil {
		return err
	}
	app.limiter = l
	return nil
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

func (app *App) newHTTPServer() *httpapi.HTTPServer {
	in := intake.New(app.store, app.logger)

	return httpapi.NewHTTPServer(httpapi.Options{
		Address:        app.config.ListenAddr,
		SecretKey:      app.config.SecretKey,
		StaticDir:      app.staticDir,
		MaxUploadBytes: app.config.MaxUploadBytes,
	}, app.logger, app.userService, app.feedbackService, in, app.limiter, app.db)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.newHTTPServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the app's resources.
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

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database pool and the Redis client.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
