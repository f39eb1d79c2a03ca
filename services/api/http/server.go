package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/pipeline"
	"github.com/02loveslollipop/citybike-availability-viewer/services/api/config"
)

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	source pipeline.Source
	engine *gin.Engine

	mu    sync.RWMutex
	data  *pipeline.Pipeline
	gen   uint64
	views gcache.Cache
}

// New constructs a server with routes and middleware. source is used again
// when the data is reloaded.
func New(cfg config.Config, source pipeline.Source, data *pipeline.Pipeline) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	size := cfg.ViewCacheSize
	if size <= 0 {
		size = 256
	}

	server := &Server{
		cfg:    cfg,
		source: source,
		engine: engine,
		data:   data,
		views:  gcache.New(size).LRU().Build(),
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Reload rebuilds the pipeline from the source and swaps it in. Readers keep
// the old pipeline until the new one is ready.
func (s *Server) Reload(ctx context.Context) error {
	if s.source == nil {
		return errors.New("no table source configured")
	}
	next, err := pipeline.New(ctx, s.source, s.pipelineOptions())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = next
	s.gen++
	s.mu.Unlock()
	s.views.Purge()

	log.Printf("reloaded table: %d rows", next.Table().Len())
	return nil
}

func (s *Server) pipelineOptions() pipeline.Options {
	return pipeline.Options{DefaultStation: s.cfg.DefaultStation}
}

func (s *Server) pipeline() *pipeline.Pipeline {
	p, _ := s.current()
	return p
}

// current returns the pipeline together with its generation, which keys
// cached views so a view built from a replaced pipeline is never served.
func (s *Server) current() (*pipeline.Pipeline, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.gen
}

// cached returns the view stored under key, computing and storing it on a
// miss. Errors are not cached.
func (s *Server) cached(gen uint64, key string, build func() (any, error)) (any, error) {
	key = strconv.FormatUint(gen, 10) + "|" + key
	if v, err := s.views.Get(key); err == nil {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	if err := s.views.Set(key, v); err != nil {
		log.Printf("warning: view cache set %s: %v", key, err)
	}
	return v, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": s.pipeline().Table().Len()})
	})

	s.registerV1Routes()
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
