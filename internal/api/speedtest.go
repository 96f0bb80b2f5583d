package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
)

// Download streams exactly :size bytes of payload. Sizes that do not parse,
// are negative, or exceed the ceiling are rejected with 400 and no body.
func (h *Handler) Download(c echo.Context) error {
	size, err := strconv.ParseInt(c.Param("size"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := (entities.TransferRequest{SizeBytes: size}).Validate(h.maxPayloadBytes()); err != nil {
		h.logger.Debug("Rejected download size", zap.Int64("size", size), zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	res.Header().Set("Cache-Control", "no-store")
	res.WriteHeader(http.StatusOK)

	start := time.Now()
	written, err := h.payload.Stream(c.Request().Context(), res, size)
	if err != nil {
		// The status line is already out; the client sees a short body.
		h.logger.Warn("Download interrupted",
			zap.Int64("size", size),
			zap.Int64("written", written),
			zap.Error(err))
		return nil
	}

	h.logger.Debug("Download served",
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Upload consumes the whole request body and answers with the number of
// bytes received as a decimal string. Bodies above the ceiling are rejected
// with 413.
func (h *Handler) Upload(c echo.Context) error {
	req := c.Request()
	maxBytes := h.maxPayloadBytes()
	if maxBytes > 0 && req.ContentLength > maxBytes {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}

	var body io.Reader = req.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
	}

	start := time.Now()
	received, err := io.Copy(io.Discard, body)
	elapsed := time.Since(start)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return c.NoContent(http.StatusRequestEntityTooLarge)
		}
		h.logger.Warn("Upload interrupted", zap.Int64("received", received), zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	h.logger.Debug("Upload received",
		zap.Int64("bytes", received),
		zap.Duration("elapsed", elapsed))

	return c.String(http.StatusOK, strconv.FormatInt(received, 10))
}

func (h *Handler) maxPayloadBytes() int64 {
	return h.service.Config().MaxPayloadBytes
}
