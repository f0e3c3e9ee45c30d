package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/library"
	"github.com/rmtools/rmusb/internal/logger"
)

var downloadFlags struct {
	outputDir string
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download all documents from the device",
	Long: `Download every document from the device into a local directory,
mirroring the device's folder structure.

Files that already exist locally with the same size are skipped; files
with a different size are overwritten.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadFlags.outputDir, "output-directory", "o", "", "The directory to store files at (default: output_dir from config)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outDir := downloadFlags.outputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	if _, err := os.Stat(outDir); err == nil {
		logger.Warn("output directory exists: %s", outDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	lib := newLibrary(cfg)
	entries, err := lib.List(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("listing device: %w", err)
	}

	for _, e := range entries {
		doc, ok := e.(*library.Document)
		if !ok {
			continue
		}

		outFn := filepath.Join(outDir, localPath(doc))

		if fi, err := os.Stat(outFn); err == nil {
			if fi.Size() == doc.Size {
				logger.Warn("skipping file with same size: %s", outFn)
				continue
			}
			logger.Info("overwriting file with different size: %s; %d (disk) != %d (device)", outFn, fi.Size(), doc.Size)
		}

		fmt.Printf("downloading %s (%s; %d pages)\n", outFn, doc.ID, doc.PageCount)

		if err := os.MkdirAll(filepath.Dir(outFn), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(outFn), err)
		}
		if err := writeDocument(cmd.Context(), lib, doc, outFn); err != nil {
			return err
		}
	}
	return nil
}

func writeDocument(ctx context.Context, lib *library.Library, doc *library.Document, outFn string) error {
	f, err := os.Create(outFn)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outFn, err)
	}

	if err := lib.Download(ctx, doc, f); err != nil {
		f.Close()
		os.Remove(outFn) // don't leave a truncated file behind
		return fmt.Errorf("downloading %s: %w", doc.Path(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", outFn, err)
	}
	return nil
}

// localPath maps a document's device path to a relative local path,
// sanitizing names the filesystem would reject.
func localPath(doc *library.Document) string {
	parts := strings.Split(doc.Path(), "/")
	last := len(parts) - 1
	for i, p := range parts {
		if i == last {
			base := strings.TrimSuffix(p, ".pdf")
			parts[i] = localName(base) + ".pdf"
		} else {
			parts[i] = localName(p)
		}
	}
	return filepath.Join(parts...)
}

// localName keeps a visible name as-is unless it contains characters a
// filesystem rejects, in which case it is slugified.
func localName(name string) string {
	if strings.ContainsAny(name, `/\:*?"<>|`) || strings.ContainsRune(name, 0) {
		return slug.Make(name)
	}
	return name
}
