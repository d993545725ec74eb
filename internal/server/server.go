package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/export"
	"github.com/ivlev/seqcrop/internal/metrics"
	"github.com/ivlev/seqcrop/internal/roi"
	"github.com/ivlev/seqcrop/internal/session"
	"github.com/ivlev/seqcrop/internal/source"
)

// Server hosts one editing session over HTTP. Every handler takes mu before
// touching the session; exports run on their own goroutines.
type Server struct {
	cfg *config.Config
	log *zap.Logger

	mu   sync.Mutex
	sess *session.Session

	jobs *jobs
	hub  *hub

	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func New(cfg *config.Config, sess *session.Session, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:  cfg,
		log:  log,
		sess: sess,
		jobs: newJobs(),
		hub:  newHub(),
	}
	if cfg.Server.Cors {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.observe())
	if cfg.Server.Cors {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:    []string{"Origin", "Content-Type"},
			MaxAge:          12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", s.handleWS)

	api := r.Group("/api")
	api.GET("/state", s.handleState)
	api.POST("/open", s.handleOpen)
	api.POST("/navigate", s.handleNavigate)
	api.POST("/view", s.handleView)
	api.POST("/roi/arm", s.handleArm)
	api.PUT("/roi", s.handleSetROI)
	api.DELETE("/roi", s.handleClearROI)
	api.POST("/roi/suggest", s.handleSuggest)
	api.POST("/roi/preset", s.handlePreset)
	api.GET("/preview.png", s.handlePreview)
	api.POST("/export", s.handleExport)
	api.GET("/export/:id", s.handleJob)
	api.DELETE("/export/:id", s.handleCancelJob)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then cancels running exports.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.engine}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("editor listening", zap.String("addr", s.cfg.Server.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.jobs.cancelAll()
	s.hub.closeAll()
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)))
	}
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var (
		loadErr   *source.LoadError
		roiErr    *roi.ROIError
		exportErr *export.ExportError
	)
	switch {
	case errors.Is(err, session.ErrNotLoaded), errors.Is(err, roi.ErrNoROI), errors.Is(err, errBusy):
		status = http.StatusConflict
	case errors.As(err, &loadErr):
		switch loadErr.Kind {
		case source.FolderMissing:
			status = http.StatusNotFound
		default:
			status = http.StatusUnprocessableEntity
		}
	case errors.As(err, &roiErr), errors.Is(err, export.ErrInvalidSettings), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.As(err, &exportErr):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
