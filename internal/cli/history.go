package cli

import (
	"github.com/spf13/cobra"

	"github.com/satriahrh/echo/server/adapters/payload"
	"github.com/satriahrh/echo/server/internal/logging"
	"github.com/satriahrh/echo/server/internal/speedclient"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs recorded by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewDevelopment(verbose)
		if err != nil {
			return err
		}
		defer logger.Sync()

		generator, err := payload.NewGenerator(payload.Config{BlockSize: 1024}, logger)
		if err != nil {
			return err
		}
		client, err := speedclient.NewClient(speedclient.Config{BaseURL: serverURL}, generator, logger)
		if err != nil {
			return err
		}

		reports, err := client.RecentReports(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return writeReports(cmd.OutOrStdout(), format, reports)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of reports to list")
	historyCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
}
