// Package server is the HTTP surface in front of the gateway: the WebSocket
// endpoint plus a health probe.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/murmurlabs/murmur/internal/gateway"
	"github.com/murmurlabs/murmur/internal/observe"
)

const shutdownGrace = 5 * time.Second

type Server struct {
	obs  *observe.Observer
	http *http.Server
}

func New(listen, wsPath string, obs *observe.Observer, gw *gateway.Gateway) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET(wsPath, func(c *gin.Context) {
		gw.Handle(c.Writer, c.Request)
	})

	return &Server{
		obs: obs,
		http: &http.Server{
			Addr:              listen,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. In-flight
// WebSocket sessions end when their connections are closed.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.obs.Log().Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
