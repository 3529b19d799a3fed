package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the minimal read-only HTTP surface exposing /healthz and
// /metrics. It is deliberately not an administration API — the CLI is
// the sole admin surface per the Non-goals.
type Server struct {
	http *http.Server
}

// NewServer builds a gin router with exactly two routes, bound to addr.
func NewServer(addr string, c *Collectors) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
	router.GET("/metrics", gin.WrapH(handler))

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine. Listen errors other
// than a clean shutdown are sent to errc.
func (s *Server) Start(errc chan<- error) {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
