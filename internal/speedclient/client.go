package speedclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/internal/api"
)

const userAgent = "echo-speedtest/1.0"

// ErrShortTransfer is returned when fewer bytes moved than were requested
var ErrShortTransfer = errors.New("transfer ended early")

// PayloadReader produces upload bodies of an exact size
type PayloadReader interface {
	NewReader(size int64) (io.Reader, error)
}

// Config holds configuration for the Client
type Config struct {
	BaseURL    string        // Required: server root, e.g. http://localhost:8080
	Timeout    time.Duration // Optional: per-transfer timeout (default none)
	HTTPClient *http.Client  // Optional: custom HTTP client
}

// Client measures transfers against a speed test server
type Client struct {
	baseURL string
	http    *http.Client
	payload PayloadReader
	logger  *zap.Logger
}

// NewClient creates a new measurement client
func NewClient(config Config, payload PayloadReader, logger *zap.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if payload == nil {
		return nil, errors.New("payload reader is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableCompression: true,
			},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    httpClient,
		payload: payload,
		logger:  logger,
	}, nil
}

// FetchConfig asks the server for its payload bounds
func (c *Client) FetchConfig(ctx context.Context) (*api.SpeedTestConfigResponse, error) {
	var config api.SpeedTestConfigResponse
	if err := c.getJSON(ctx, "/api/v1/speedtest/config", &config); err != nil {
		return nil, fmt.Errorf("failed to fetch speed test config: %w", err)
	}
	return &config, nil
}

// RecentReports lists reports stored by the server
func (c *Client) RecentReports(ctx context.Context, limit int) ([]*entities.RunReport, error) {
	var resp api.ReportsResponse
	if err := c.getJSON(ctx, "/api/v1/reports?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return resp.Reports, nil
}

// MeasureDownload times the download of size bytes, from sending the request
// until the last byte of the body has been read.
func (c *Client) MeasureDownload(ctx context.Context, size int64) (entities.TransferResult, error) {
	url := c.baseURL + "/speedtest/download/" + strconv.FormatInt(size, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.TransferResult{}, fmt.Errorf("download rejected with status %d", resp.StatusCode)
	}

	received, err := io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to read download body: %w", err)
	}
	if received != size {
		return entities.TransferResult{}, fmt.Errorf("%w: received %d of %d bytes", ErrShortTransfer, received, size)
	}

	c.logger.Debug("Download measured",
		zap.Int64("bytes", received),
		zap.Duration("elapsed", elapsed))

	return entities.TransferResult{
		Direction:        entities.DirectionDownload,
		BytesTransferred: received,
		Elapsed:          elapsed,
	}, nil
}

// MeasureUpload times the upload of size bytes, from sending the request
// until the server's acknowledgment has been read.
func (c *Client) MeasureUpload(ctx context.Context, size int64) (entities.TransferResult, error) {
	body, err := c.payload.NewReader(size)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to create upload payload: %w", err)
	}

	var sent int64
	counter := &countingReader{r: body, counter: &sent}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speedtest/upload", counter)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to send upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return entities.TransferResult{}, fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	ack, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	elapsed := time.Since(start)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("failed to read upload acknowledgment: %w", err)
	}
	received, err := strconv.ParseInt(strings.TrimSpace(string(ack)), 10, 64)
	if err != nil {
		return entities.TransferResult{}, fmt.Errorf("invalid upload acknowledgment %q: %w", ack, err)
	}
	if received != size {
		return entities.TransferResult{}, fmt.Errorf("%w: server received %d of %d bytes", ErrShortTransfer, received, size)
	}

	c.logger.Debug("Upload measured",
		zap.Int64("bytes", atomic.LoadInt64(&sent)),
		zap.Duration("elapsed", elapsed))

	return entities.TransferResult{
		Direction:        entities.DirectionUpload,
		BytesTransferred: received,
		Elapsed:          elapsed,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// countingReader tracks how many bytes the transport has pulled
type countingReader struct {
	r       io.Reader
	counter *int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	atomic.AddInt64(cr.counter, int64(n))
	return n, err
}
