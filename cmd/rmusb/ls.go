package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/library"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all documents and folders on the device",
	RunE:  runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lib := newLibrary(cfg)
	entries, err := lib.List(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("listing device: %w", err)
	}

	for _, e := range entries {
		switch d := e.(type) {
		case *library.Document:
			fmt.Printf("%s  %s  %d pages\n", d.ID, d.Path(), d.PageCount)
		case *library.Folder:
			fmt.Printf("%s  %s/\n", d.ID, d.Path())
		}
	}
	return nil
}
