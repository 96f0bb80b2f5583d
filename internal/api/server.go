package api

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server owns the Echo instance and its declared routes
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
}

// NewServer builds the middleware stack and registers every route. static
// may be nil.
func NewServer(h *Handler, static fs.FS, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				logger.Warn("Request failed", fields...)
				return nil
			}
			logger.Debug("Request served", fields...)
			return nil
		},
	}))

	InitRoutes(e, h, static)

	return &Server{echo: e, logger: logger}
}

// Start listens on address until Shutdown is called
func (s *Server) Start(address string) error {
	s.logger.Info("HTTP server listening", zap.String("address", address))
	return s.echo.Start(address)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
