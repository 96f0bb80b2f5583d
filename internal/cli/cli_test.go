package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/echo/server/adapters/memory"
	"github.com/satriahrh/echo/server/adapters/payload"
	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/internal/api"
	"github.com/satriahrh/echo/server/internal/auth"
	"github.com/satriahrh/echo/server/internal/websocket"
	"github.com/satriahrh/echo/server/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	logger := zap.NewNop()
	generator, err := payload.NewGenerator(payload.Config{BlockSize: 64 << 10, MaxSize: 16 << 20}, logger)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	service := usecase.NewSpeedTestService(memory.NewReportRepository(10), usecase.SpeedTestConfig{
		MaxPayloadBytes:     16 << 20,
		DefaultPayloadBytes: 1 << 20,
	}, logger)
	tokens, _ := auth.NewTokenIssuer("test-secret", time.Hour)
	hub := websocket.NewHub(service, logger)
	go hub.Run()

	server := httptest.NewServer(api.NewServer(api.NewHandler(generator, service, tokens, hub, logger), nil, logger))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return server
}

func TestRunCommand(t *testing.T) {
	server := newTestServer(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--server", server.URL, "--size-bytes", "65536", "--count", "2", "--format", "json"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var outputs []reportOutput
	if err := json.Unmarshal(out.Bytes(), &outputs); err != nil {
		t.Fatalf("Unmarshal() error = %v, output %s", err, out.String())
	}
	if len(outputs) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(outputs))
	}
	for _, o := range outputs {
		if o.Report.DownloadBytes != 65536 || o.Report.UploadBytes != 65536 {
			t.Errorf("Unexpected byte counts %d/%d", o.Report.DownloadBytes, o.Report.UploadBytes)
		}
		if !strings.HasSuffix(o.Display.Download, "Mbps") && o.Display.Download != usecase.NotAvailable {
			t.Errorf("Unexpected download display %s", o.Display.Download)
		}
	}
}

func TestWriteReports(t *testing.T) {
	mbps := 8.0
	reports := []*entities.RunReport{{
		RunID:            "run-1",
		PayloadSizeBytes: 1 << 20,
		DownloadBytes:    1 << 20,
		DownloadMbps:     &mbps,
		DownloadSeconds:  1,
		TotalSeconds:     1,
		CreatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var text bytes.Buffer
	if err := writeReports(&text, formatText, reports); err != nil {
		t.Fatalf("writeReports(text) error = %v", err)
	}
	if !strings.Contains(text.String(), "download 8.00 Mbps (1.00 s), upload N/A (N/A)") {
		t.Errorf("Unexpected text output %q", text.String())
	}

	var out bytes.Buffer
	if err := writeReports(&out, formatYAML, reports); err != nil {
		t.Fatalf("writeReports(yaml) error = %v", err)
	}
	var decoded []map[string]interface{}
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	display := decoded[0]["display"].(map[string]interface{})
	if display["download"] != "8.00 Mbps" {
		t.Errorf("Expected 8.00 Mbps in yaml output, got %v", display["download"])
	}

	if err := writeReports(&out, "xml", reports); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
