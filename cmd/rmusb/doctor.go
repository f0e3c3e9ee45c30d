package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/api"
	"github.com/rmtools/rmusb/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity to the device",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if config.Exists() {
		fmt.Println("Config: found")
	} else {
		fmt.Println("Config: none (using defaults; run 'rmusb setup' to create one)")
	}
	fmt.Printf("Device address: %s\n", cfg.BaseURL)

	client := api.NewClient(
		api.WithBaseURL(cfg.BaseURL),
		api.WithRetries(cfg.Retries),
	)

	infos, err := client.ReadFolder(cmd.Context(), "")
	if err != nil {
		return fmt.Errorf("cannot reach device at %s: %w\n\nIs the tablet connected via USB with \"USB web interface\" enabled in the storage settings?", cfg.BaseURL, err)
	}

	docs, folders := 0, 0
	for _, info := range infos {
		if info.IsFolder() {
			folders++
		} else {
			docs++
		}
	}
	fmt.Printf("Device reachable: %d documents, %d folders in root\n", docs, folders)
	return nil
}
