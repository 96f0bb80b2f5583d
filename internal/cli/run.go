package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/adapters/memory"
	"github.com/satriahrh/echo/server/adapters/payload"
	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/internal/config"
	"github.com/satriahrh/echo/server/internal/logging"
	"github.com/satriahrh/echo/server/internal/speedclient"
	"github.com/satriahrh/echo/server/usecase"
)

var (
	sizeMB    int
	sizeBytes int64
	count     int
	format    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run speed tests against the server",
	Long: `Downloads a payload of the chosen size from the server, uploads a payload
of the same size back, and reports throughput for both phases in Mbps.`,
	Example: `  # One run with the default payload size
  speedtest run

  # Three runs of 25 MB against a remote server, as JSON
  speedtest run --server http://echo.example.com --size-mb 25 --count 3 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err := logging.NewDevelopment(verbose)
		if err != nil {
			return err
		}
		defer logger.Sync()

		size := sizeBytes
		if size == 0 && sizeMB > 0 {
			size = int64(sizeMB) << 20
		}
		if count < 1 {
			return fmt.Errorf("count must be at least 1, got %d", count)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner, err := newRunner(ctx, cfg, logger)
		if err != nil {
			return err
		}

		reports := make([]*entities.RunReport, 0, count)
		for i := 0; i < count; i++ {
			report, err := runner.Run(ctx, size)
			if err != nil {
				return fmt.Errorf("run %d of %d: %w", i+1, count, err)
			}
			reports = append(reports, report)
		}

		return writeReports(cmd.OutOrStdout(), format, reports)
	},
}

func newRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*speedclient.Runner, error) {
	generator, err := payload.NewGenerator(payload.Config{
		BlockSize: cfg.SpeedTest.ChunkBytes,
		MaxSize:   cfg.SpeedTest.MaxPayloadBytes,
		Mode:      payload.Mode(cfg.SpeedTest.PayloadMode),
	}, logger)
	if err != nil {
		return nil, err
	}

	client, err := speedclient.NewClient(speedclient.Config{BaseURL: serverURL}, generator, logger)
	if err != nil {
		return nil, err
	}

	// The server's ceiling wins over the local one.
	serviceConfig := usecase.SpeedTestConfig{
		MaxPayloadBytes:     cfg.SpeedTest.MaxPayloadBytes,
		DefaultPayloadBytes: cfg.SpeedTest.DefaultPayloadBytes,
	}
	if remote, err := client.FetchConfig(ctx); err != nil {
		logger.Warn("Using local payload limits", zap.Error(err))
	} else {
		serviceConfig.MaxPayloadBytes = min(serviceConfig.MaxPayloadBytes, remote.MaxPayloadBytes)
		serviceConfig.DefaultPayloadBytes = remote.DefaultPayloadBytes
	}

	service := usecase.NewSpeedTestService(memory.NewReportRepository(0), serviceConfig, logger)
	return speedclient.NewRunner(client, service, "cli-"+uuid.NewString(), logger), nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&sizeMB, "size-mb", 0, "payload size in MB (default is the server default)")
	runCmd.Flags().Int64Var(&sizeBytes, "size-bytes", 0, "payload size in bytes, overrides --size-mb")
	runCmd.Flags().IntVarP(&count, "count", "n", 1, "number of runs")
	runCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
}
