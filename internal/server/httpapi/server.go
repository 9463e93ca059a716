// Package httpapi exposes the feedback service over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/feedbackd/internal/logging"
	"github.com/dmitrijs2005/feedbackd/internal/server/intake"
	"github.com/dmitrijs2005/feedbackd/internal/server/media"
	"github.com/dmitrijs2005/feedbackd/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Options are the transport-level settings of the server.
type Options struct {
	Address   string
	SecretKey string
	// StaticDir is served under /uploads when set (local media backend).
	StaticDir      string
	MaxUploadBytes int64
}

type HTTPServer struct {
	opts      Options
	logger    logging.Logger
	users     UserService
	feedback  FeedbackService
	intake    *intake.Intake
	limiter   ratelimit.Limiter
	db        Pinger
	jwtSecret []byte
}

// NewHTTPServer wires the handlers. limiter may be nil, which disables
// rate limiting of the auth endpoints.
func NewHTTPServer(opts Options, l logging.Logger, us UserService, fs FeedbackService, in *intake.Intake, limiter ratelimit.Limiter, db Pinger) *HTTPServer {
	return &HTTPServer{
		opts:      opts,
		logger:    l.With("module", "http_server"),
		users:     us,
		feedback:  fs,
		intake:    in,
		limiter:   limiter,
		db:        db,
		jwtSecret: []byte(opts.SecretKey),
	}
}

// Handler builds the gin engine with all routes registered.
func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)

	authGroup := r.Group("/", s.rateLimit("auth"))
	for _, prefix := range []string{"", "/api/users"} {
		authGroup.POST(prefix+"/register", s.register)
		authGroup.POST(prefix+"/login", s.login)
	}

	fb := r.Group("/feedback", s.authMiddleware())
	fb.POST("/upload", s.uploadFeedback)
	fb.GET("", s.listFeedback)
	fb.GET("/:id", s.getFeedback)
	fb.PATCH("/:id", s.updateFeedback)
	fb.DELETE("/:id", s.deleteFeedback)

	if s.opts.StaticDir != "" {
		r.Static("/"+media.Prefix, s.opts.StaticDir)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
