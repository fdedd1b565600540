package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter sets up the Gin router for the callback bridge
func SetupRouter(bridge *Bridge, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoopbackOnly(), CORS(allowedOrigins))

	router.GET("/healthz", bridge.Health)
	router.POST("/message/:source", bridge.PostMessage)
	router.OPTIONS("/message/:source", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return router
}

// Server serves the callback bridge on a loopback listener
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   logrus.FieldLogger
}

// Listen binds addr and starts serving in the background. Use port 0 to let
// the OS pick a free port.
func Listen(addr string, handler http.Handler, logger logrus.FieldLogger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger.WithField("component", "bridge"),
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("callback server stopped")
		}
	}()

	s.logger.WithField("addr", listener.Addr().String()).Info("callback server listening")
	return s, nil
}

// MessageURL is the base URL popups post to; the popup source is appended
func (s *Server) MessageURL() string {
	return "http://" + s.listener.Addr().String() + "/message"
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
