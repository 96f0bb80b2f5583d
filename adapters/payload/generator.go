package payload

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/domain/repositories"
)

const (
	defaultBlockSize = 1 << 20   // 1 MiB random block
	defaultMaxSize   = 200 << 20 // 200 MiB
)

// Mode selects how payload bytes are produced
type Mode string

const (
	// ModeReplicate repeats one random block generated at construction
	ModeReplicate Mode = "replicate"
	// ModeFresh draws new random bytes for every chunk
	ModeFresh Mode = "fresh"
)

// Config holds configuration for the Generator
type Config struct {
	BlockSize int   // Optional: chunk size in bytes (default 1 MiB)
	MaxSize   int64 // Optional: payload ceiling in bytes (default 200 MiB)
	Mode      Mode  // Optional: replicate (default) or fresh
}

// Generator produces speed test payloads
type Generator struct {
	block   []byte
	maxSize int64
	mode    Mode
	logger  *zap.Logger
}

var _ repositories.PayloadSource = (*Generator)(nil)

// NewGenerator creates a generator and fills its random block. The block is
// never written after this returns, so a Generator is safe for concurrent use.
func NewGenerator(config Config, logger *zap.Logger) (*Generator, error) {
	blockSize := config.BlockSize
	if blockSize == 0 {
		blockSize = defaultBlockSize
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = defaultMaxSize
	}
	if maxSize < 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}

	mode := config.Mode
	switch mode {
	case "":
		mode = ModeReplicate
	case ModeReplicate, ModeFresh:
	default:
		return nil, fmt.Errorf("unsupported payload mode: %s", mode)
	}

	block := make([]byte, blockSize)
	if _, err := rand.Read(block); err != nil {
		return nil, fmt.Errorf("failed to fill random block: %w", err)
	}

	logger.Info("Payload generator ready",
		zap.Int("blockSize", blockSize),
		zap.Int64("maxSize", maxSize),
		zap.String("mode", string(mode)))

	return &Generator{
		block:   block,
		maxSize: maxSize,
		mode:    mode,
		logger:  logger,
	}, nil
}

// MaxSize implements repositories.PayloadSource
func (g *Generator) MaxSize() int64 {
	return g.maxSize
}

// BlockSize returns the chunk size used when streaming
func (g *Generator) BlockSize() int {
	return len(g.block)
}

// Generate implements repositories.PayloadSource
func (g *Generator) Generate(size int64) ([]byte, error) {
	if err := (entities.TransferRequest{SizeBytes: size}).Validate(g.maxSize); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	for off := int64(0); off < size; {
		chunk, err := g.chunk(size - off)
		if err != nil {
			return nil, err
		}
		off += int64(copy(buf[off:], chunk))
	}
	return buf, nil
}

// Stream implements repositories.PayloadSource. Whole blocks are written
// first, then the remainder, flushing after each write when w supports it.
func (g *Generator) Stream(ctx context.Context, w io.Writer, size int64) (int64, error) {
	if err := (entities.TransferRequest{SizeBytes: size}).Validate(g.maxSize); err != nil {
		return 0, err
	}

	flusher, _ := w.(http.Flusher)

	var written int64
	for written < size {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		chunk, err := g.chunk(size - written)
		if err != nil {
			return written, err
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write payload chunk: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	g.logger.Debug("Payload streamed", zap.Int64("bytes", written))
	return written, nil
}

// NewReader returns a reader yielding exactly size payload bytes
func (g *Generator) NewReader(size int64) (io.Reader, error) {
	if err := (entities.TransferRequest{SizeBytes: size}).Validate(g.maxSize); err != nil {
		return nil, err
	}
	return &reader{g: g, remaining: size}, nil
}

// chunk returns at most remaining bytes of payload
func (g *Generator) chunk(remaining int64) ([]byte, error) {
	n := int64(len(g.block))
	if remaining < n {
		n = remaining
	}
	if g.mode == ModeReplicate {
		return g.block[:n], nil
	}

	fresh := make([]byte, n)
	if _, err := rand.Read(fresh); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return fresh, nil
}

type reader struct {
	g         *Generator
	remaining int64
	pending   []byte
}

func (r *reader) Read(p []byte) (int, error) {
	if r.remaining == 0 && len(r.pending) == 0 {
		return 0, io.EOF
	}
	if len(r.pending) == 0 {
		chunk, err := r.g.chunk(r.remaining)
		if err != nil {
			return 0, err
		}
		r.pending = chunk
		r.remaining -= int64(len(chunk))
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
