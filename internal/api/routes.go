package api

import (
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/domain/repositories"
	"github.com/satriahrh/echo/server/internal/auth"
	"github.com/satriahrh/echo/server/internal/websocket"
	"github.com/satriahrh/echo/server/usecase"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 200
)

// Handler serves the HTTP side of the speed test
type Handler struct {
	payload repositories.PayloadSource
	service *usecase.SpeedTestService
	tokens  *auth.TokenIssuer
	hub     *websocket.Hub
	logger  *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(
	payload repositories.PayloadSource,
	service *usecase.SpeedTestService,
	tokens *auth.TokenIssuer,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		payload: payload,
		service: service,
		tokens:  tokens,
		hub:     hub,
		logger:  logger,
	}
}

// InitRoutes initializes all routes. static may be nil.
func InitRoutes(e *echo.Echo, h *Handler, static fs.FS) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "echo-speedtest",
		})
	})

	// Transfer endpoints
	e.GET("/speedtest/download/:size", h.Download)
	e.POST("/speedtest/upload", h.Upload)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/speedtest/config", h.speedTestConfig)
	v1.POST("/sessions", h.createSession)
	v1.GET("/reports", h.listReports)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)

	if static != nil {
		e.StaticFS("/", static)
	}
}

func (h *Handler) speedTestConfig(c echo.Context) error {
	config := h.service.Config()
	return c.JSON(http.StatusOK, SpeedTestConfigResponse{
		MaxPayloadBytes:     config.MaxPayloadBytes,
		DefaultPayloadBytes: config.DefaultPayloadBytes,
		MinSizeMB:           websocket.MinSizeMB,
		MaxSizeMB:           websocket.MaxSizeMB,
	})
}

func (h *Handler) createSession(c echo.Context) error {
	sessionID := uuid.New().String()

	token, expiresAt, err := h.tokens.GenerateSessionToken(sessionID)
	if err != nil {
		h.logger.Error("Failed to generate session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	h.logger.Info("Session created", zap.String("sessionID", sessionID))

	return c.JSON(http.StatusCreated, SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: sessionID,
	})
}

func (h *Handler) listReports(c echo.Context) error {
	limit := defaultReportLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(parsed, maxReportLimit)
	}

	ctx := c.Request().Context()
	var (
		reports []*entities.RunReport
		err     error
	)
	if sessionID := c.QueryParam("session_id"); sessionID != "" {
		reports, err = h.service.SessionReports(ctx, sessionID, limit)
	} else {
		reports, err = h.service.RecentReports(ctx, limit)
	}
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list reports",
		})
	}

	return c.JSON(http.StatusOK, ReportsResponse{Reports: reports})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (h *Handler) websocketWithAuth(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if header := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Session token is required",
		})
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("sessionID", claims.SessionID))

	return websocket.HandleWebSocket(h.hub, c, claims.SessionID, h.logger)
}
