package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/api"
	"github.com/rmtools/rmusb/internal/config"
	"github.com/rmtools/rmusb/internal/library"
	"github.com/rmtools/rmusb/internal/logger"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootFlags struct {
	baseURL string
	retries int
}

var rootCmd = &cobra.Command{
	Use:   "rmusb",
	Short: "Manage documents on a USB-connected reMarkable tablet",
	Long: `rmusb talks to the reMarkable tablet's USB web interface.

Connect the tablet via USB, enable "USB web interface" in the storage
settings, and the device serves its document library at http://10.11.99.1.
rmusb lists that library, mirrors it to a local directory, and uploads
local PDFs back to the device.

Configuration is loaded with the following precedence:
  CLI flags > Environment variables (RMUSB_*) > Project config > Global config > Defaults

Project config: ./rmusb.yml
Global config: ~/.config/rmusb/rmusb.yml`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.baseURL, "base-url", "", "Device address (default http://10.11.99.1)")
	rootCmd.PersistentFlags().IntVar(&rootFlags.retries, "retries", 0, "Times to retry a failed device request (default 3)")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(verifyHooksCmd)
}

// loadConfig loads the layered configuration and applies persistent flag
// overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if rootCmd.PersistentFlags().Changed("base-url") {
		cfg.BaseURL = rootFlags.baseURL
	}
	if rootCmd.PersistentFlags().Changed("retries") {
		cfg.Retries = rootFlags.retries
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.Default.SetLevel(level)
	}

	return cfg, nil
}

// newLibrary builds the device client and library for the given config.
func newLibrary(cfg *config.Config) *library.Library {
	client := api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithRetries(cfg.Retries),
	)
	return library.New(client)
}
