package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/logger"
)

var uploadFlags struct {
	directory string
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a directory of PDFs to the device",
	Long: `Upload every PDF under a local directory to the device, preserving the
directory structure. Files the device already has are skipped.

The device API cannot create folders, so the target folders must already
exist on the device.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFlags.directory, "directory", "d", "", "Directory to read files from (required)")
	_ = uploadCmd.MarkFlagRequired("directory")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := uploadFlags.directory
	fsys := os.DirFS(dir)

	files, err := scanPDFs(fsys)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", dir, err)
	}

	lib := newLibrary(cfg)
	ctx := cmd.Context()

	for _, rel := range files {
		// Refetch per file: each upload changes the device's listing.
		entries, err := lib.List(ctx, true)
		if err != nil {
			return fmt.Errorf("listing device: %w", err)
		}

		has, err := lib.Has(ctx, rel, entries)
		if err != nil {
			return err
		}
		if has {
			continue
		}

		fmt.Printf("uploading %s\n", rel)
		if err := lib.Upload(ctx, filepath.Join(dir, filepath.FromSlash(rel)), rel, entries); err != nil {
			return err
		}
	}
	return nil
}

// scanPDFs returns the relative slash-separated paths of all PDFs under
// fsys, sorted. Files of any other type are skipped with a warning.
func scanPDFs(fsys fs.FS) ([]string, error) {
	matches, err := doublestar.Glob(fsys, "**/*")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, m := range matches {
		fi, err := fs.Stat(fsys, m)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(m), ".pdf") {
			files = append(files, m)
		} else {
			logger.Warn("unknown filetype, skipping: %s", m)
		}
	}

	sort.Strings(files)
	return files, nil
}
