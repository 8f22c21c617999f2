// Package server is the web host for the story builder: one page with a
// Start Story tab and a Continue Story tab, plus a JSON API behind them.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Yates-Labs/storyteller/internal/logger"
	"github.com/Yates-Labs/storyteller/internal/metrics"
	"github.com/Yates-Labs/storyteller/internal/story"
)

const indexTemplate = "index.html"

//go:embed templates/*.html
var templatesFS embed.FS

// Options configures the HTTP server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	Production      bool
	Debug           bool
	AllowedOrigins  []string
}

// Server serves the story pages and API.
type Server struct {
	engine   *gin.Engine
	builder  *story.Builder
	recorder *metrics.Recorder
	opts     Options
}

// New creates a server around builder. A nil recorder gets a fresh one.
func New(builder *story.Builder, recorder *metrics.Recorder, opts Options) *Server {
	// Debug mode dumps routes to stdout; keep it only for debug logging.
	if opts.Production || (!opts.Debug && gin.Mode() == gin.DebugMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	s := &Server{
		engine:   gin.New(),
		builder:  builder,
		recorder: recorder,
		opts:     opts,
	}
	s.engine.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupMiddleware() {
	s.engine.Use(recovery())
	s.engine.Use(requestID())
	s.engine.Use(accessLog())
	s.engine.Use(observeHTTP(s.recorder))
	s.engine.Use(corsPolicy(s.opts.AllowedOrigins))
}

// setupRoutes binds each action to exactly one builder call.
func (s *Server) setupRoutes() {
	s.engine.GET("/", s.index)
	s.engine.POST("/start", s.startPage)
	s.engine.POST("/continue", s.continuePage)

	api := s.engine.Group("/api/v1/story")
	api.POST("/start", s.startAPI)
	api.POST("/continue", s.continueAPI)

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(s.recorder.Handler()))
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.opts.Addr,
		Handler:     s.engine,
		ReadTimeout: s.opts.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Default().Info("story server listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		timeout := s.opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Default().Info("shutting down story server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
