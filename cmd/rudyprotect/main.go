package main

import (
	"fmt"
	"os"

	"rudyprotect/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rudyprotect",
	Short: "Discord moderation bot with join-time captcha verification",
	Long: `RudyProtect gates new members behind a captcha button, kicks those who
never confirm and exposes moderation and blacklist tools to staff, the
website backend and the web dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv("CONFIG_PATH", configPath)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is ./config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.AddCommand(serveCmd, migrateCmd, commandsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return config.BuildLogger(level)
}
