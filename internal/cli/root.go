package cli

import (
	"github.com/spf13/cobra"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	serverURL string
	verbose   bool

	rootCmd = &cobra.Command{
		Use:          "speedtest",
		Short:        "Measure download and upload throughput against an Echo server",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus environment)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "speed test server URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
