// Stock Sentinel watches a list of tickers, researches large moves and
// reports them over Telegram.
package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"stock-sentinel-bot/config"
	"stock-sentinel-bot/lib/logging"
	"stock-sentinel-bot/lib/translation"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sentinel",
	Short:         "Personal stock-watch agent for Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if err := config.LoadFile(configFile); err != nil {
			return err
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			config.Set("debug", true)
		}

		err := logging.Setup(logging.Options{
			Level: config.GetString("log_level"),
			Debug: config.GetBool("debug"),
			File:  config.GetString("log_file"),
		})
		if err != nil {
			return err
		}

		translation.Configure("locales", config.GetString("lang"))
		log.Debugf("🌍 Replying in language %q", translation.GetLanguage())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := config.ResolveSecrets(ctx); err != nil {
			return err
		}
		log.Debug("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(researchCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Stock Sentinel %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}
