// Package ops serves the operational HTTP endpoints: health and Prometheus
// metrics.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/surokacs/petertrain-bot/core/buildinfo"
	"github.com/surokacs/petertrain-bot/core/logger"
)

const component = "ops"

// Check is a named dependency probe reported by /healthz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	Listen     string
	Checks     []Check
	Collectors []prometheus.Collector
	// CheckTimeout bounds each probe.
	CheckTimeout time.Duration
}

// Server is the ops HTTP server.
type Server struct {
	opts     Options
	engine   *gin.Engine
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// NewServer builds the router and a private metrics registry holding the
// Go runtime, process and given collectors.
func NewServer(opts Options) (*Server, error) {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "petertrain_ops_http_requests_total",
		Help: "Requests served by the ops listener.",
	}, []string{"method", "path", "status"})

	all := append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requests,
	}, opts.Collectors...)
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{opts: opts, engine: gin.New(), registry: reg, requests: requests}
	s.engine.Use(gin.Recovery(), s.countRequests)
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) countRequests(c *gin.Context) {
	c.Next()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	s.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
}

type healthResponse struct {
	Status string            `json:"status"`
	Build  buildinfo.Info    `json:"build"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Build: buildinfo.Current(), Checks: map[string]string{}}
	code := http.StatusOK
	for _, chk := range s.opts.Checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.CheckTimeout)
		err := chk.Ping(ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks[chk.Name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[chk.Name] = "ok"
	}
	c.JSON(code, resp)
}

// Run serves on Listen until ctx is done. An empty Listen returns at once.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.Listen == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info(ctx, component, "listen", slog.String("addr", s.opts.Listen))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	logger.Info(ctx, component, "shutdown", slog.String("status", logger.Status(err)))
	return err
}
