// Package library builds a navigable document/folder tree on top of the
// raw device API and implements path-based lookup, upload and download.
package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rmtools/rmusb/internal/api"
	"github.com/rmtools/rmusb/internal/logger"
)

// Device is the subset of the api client the library needs.
type Device interface {
	ReadFolder(ctx context.Context, folderID string) ([]api.DocumentInfo, error)
	DownloadDocument(ctx context.Context, documentID string, w io.Writer) error
	UploadDocument(ctx context.Context, name string, r io.Reader) error
	Mkdir(ctx context.Context, path string) error
}

// Entry is either a *Document or a *Folder.
type Entry interface {
	// Path returns the slash-separated device path of the entry.
	Path() string
	// Meta returns the raw device metadata record.
	Meta() api.DocumentInfo
}

// Folder is a collection entry on the device.
type Folder struct {
	ID     string
	Name   string
	Parent *Folder // nil for root-level folders
	Info   api.DocumentInfo
}

// Path returns the slash-separated device path of the folder.
func (f *Folder) Path() string {
	if f.Parent == nil {
		return f.Name
	}
	return path.Join(f.Parent.Path(), f.Name)
}

// Meta returns the raw device metadata record.
func (f *Folder) Meta() api.DocumentInfo { return f.Info }

// Document is a downloadable document entry on the device.
type Document struct {
	ID        string
	Name      string
	Parent    *Folder // nil for root-level documents
	Extension string  // downloads are rendered PDFs
	Size      int64
	PageCount int
	Info      api.DocumentInfo
}

// Path returns the slash-separated device path of the document,
// including the extension.
func (d *Document) Path() string {
	name := d.Name + "." + d.Extension
	if d.Parent == nil {
		return name
	}
	return path.Join(d.Parent.Path(), name)
}

// Meta returns the raw device metadata record.
func (d *Document) Meta() api.DocumentInfo { return d.Info }

// Library resolves the device's flat folder listings into a tree.
type Library struct {
	dev Device
}

// New creates a Library over the given device client.
func New(dev Device) *Library {
	return &Library{dev: dev}
}

// List returns the entries of the root folder, descending into every
// subfolder when recurse is set. Entries of a folder come before the
// contents of its subfolders. Entries with an unknown type are skipped
// with a warning.
func (l *Library) List(ctx context.Context, recurse bool) ([]Entry, error) {
	return l.listFolder(ctx, "", nil, recurse)
}

func (l *Library) listFolder(ctx context.Context, folderID string, parent *Folder, recurse bool) ([]Entry, error) {
	infos, err := l.dev.ReadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, info := range infos {
		switch info.Type {
		case api.TypeDocument:
			size, err := info.Size()
			if err != nil {
				return nil, fmt.Errorf("document %q: %w", info.VissibleName, err)
			}
			entries = append(entries, &Document{
				ID:        info.ID,
				Name:      info.VissibleName,
				Parent:    parent,
				Extension: "pdf",
				Size:      size,
				PageCount: info.PageCount,
				Info:      info,
			})
		case api.TypeCollection:
			entries = append(entries, &Folder{
				ID:     info.ID,
				Name:   info.VissibleName,
				Parent: parent,
				Info:   info,
			})
		default:
			logger.Warn("skipping %s/%s", info.VissibleName, info.Type)
		}
	}

	if recurse {
		var subs []Entry
		for _, e := range entries {
			folder, ok := e.(*Folder)
			if !ok {
				continue
			}
			children, err := l.listFolder(ctx, folder.ID, folder, true)
			if err != nil {
				return nil, err
			}
			subs = append(subs, children...)
		}
		entries = append(entries, subs...)
	}

	return entries, nil
}

// Find resolves a slash-separated device path to its entry, or nil if
// no entry exists at that path. Passing a previously fetched entry list
// avoids refetching the whole tree; with entries nil the tree is
// fetched first.
func (l *Library) Find(ctx context.Context, devicePath string, entries []Entry) (Entry, error) {
	if entries == nil {
		var err error
		entries, err = l.List(ctx, true)
		if err != nil {
			return nil, err
		}
	}
	return findPath(devicePath, entries), nil
}

// Has reports whether an entry exists at the given device path.
func (l *Library) Has(ctx context.Context, devicePath string, entries []Entry) (bool, error) {
	e, err := l.Find(ctx, devicePath, entries)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

func findPath(devicePath string, entries []Entry) Entry {
	devicePath = path.Clean(strings.Trim(devicePath, "/"))
	if devicePath == "." || devicePath == "" {
		return nil
	}

	parentID := ""
	if dir := path.Dir(devicePath); dir != "." {
		parent := findPath(dir, entries)
		if parent == nil {
			return nil
		}
		parentID = parent.Meta().ID
	}

	return findChild(path.Base(devicePath), parentID, entries)
}

// findChild matches an entry by visible name within one folder. A
// trailing .pdf is stripped before comparing: documents are named
// without extension on the device.
func findChild(name, parentID string, entries []Entry) Entry {
	name = strings.TrimSuffix(name, ".pdf")
	for _, e := range entries {
		if e.Meta().VissibleName == name && e.Meta().Parent == parentID {
			return e
		}
	}
	return nil
}

// EnsureFolder resolves the folder at devicePath. The device API cannot
// create folders, so a missing folder is an error telling the user to
// create it on the device. With existsOK false an existing folder is
// also an error. With parents set, missing intermediate folders are
// resolved the same way.
func (l *Library) EnsureFolder(ctx context.Context, devicePath string, existsOK, parents bool, entries []Entry) (*Folder, error) {
	if entries == nil {
		var err error
		entries, err = l.List(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	parentID := ""
	if dir := path.Dir(path.Clean(devicePath)); dir != "." {
		if parents {
			parent, err := l.EnsureFolder(ctx, dir, true, true, entries)
			if err != nil {
				return nil, err
			}
			parentID = parent.ID
		} else {
			parent := findPath(dir, entries)
			if parent == nil {
				return nil, fmt.Errorf("parent folder %q does not exist", dir)
			}
			parentID = parent.Meta().ID
		}
	}

	switch e := findChild(path.Base(devicePath), parentID, entries).(type) {
	case *Document:
		return nil, fmt.Errorf("a document named %q exists where a folder is needed", devicePath)
	case *Folder:
		if !existsOK {
			return nil, fmt.Errorf("folder %q already exists", devicePath)
		}
		return e, nil
	default:
		return nil, l.dev.Mkdir(ctx, devicePath)
	}
}

// Upload uploads a local PDF to devicePath, resolving (and requiring)
// the parent folder first. Only PDFs are supported by the device's
// upload endpoint.
func (l *Library) Upload(ctx context.Context, localPath, devicePath string, entries []Entry) error {
	if !strings.EqualFold(path.Ext(localPath), ".pdf") {
		return fmt.Errorf("uploading %q: only PDF files are supported", localPath)
	}
	if !strings.EqualFold(path.Ext(devicePath), ".pdf") {
		return fmt.Errorf("uploading to %q: device path must end in .pdf", devicePath)
	}

	if entries == nil {
		var err error
		entries, err = l.List(ctx, true)
		if err != nil {
			return err
		}
	}

	targetID := ""
	if dir := path.Dir(path.Clean(devicePath)); dir != "." {
		folder, err := l.EnsureFolder(ctx, dir, true, true, entries)
		if err != nil {
			return err
		}
		targetID = folder.ID
	}

	// The upload endpoint places files into the folder most recently
	// listed, so the target folder must be read immediately before.
	if _, err := l.dev.ReadFolder(ctx, targetID); err != nil {
		return fmt.Errorf("selecting upload folder: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", localPath, err)
	}
	defer f.Close()

	logger.Debug("uploading %s as %s", localPath, devicePath)
	return l.dev.UploadDocument(ctx, path.Base(devicePath), f)
}

// Download streams the document's rendered PDF to w.
func (l *Library) Download(ctx context.Context, doc *Document, w io.Writer) error {
	logger.Debug("downloading %s (%s, %d pages)", doc.Path(), doc.ID, doc.PageCount)
	return l.dev.DownloadDocument(ctx, doc.ID, w)
}
