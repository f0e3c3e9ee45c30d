package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmtools/rmusb/internal/api"
)

// fakeDevice serves a fixed folder tree:
//
//	/Readme.pdf            (doc-0)
//	/Papers/               (dir-1)
//	/Papers/Attention.pdf  (doc-1)
//	/Papers/2024/          (dir-2)
//	/Papers/2024/Mamba.pdf (doc-2)
type fakeDevice struct {
	folders     map[string][]api.DocumentInfo
	readOrder   []string
	uploads     map[string][]byte
	downloadErr error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		folders: map[string][]api.DocumentInfo{
			"": {
				{ID: "dir-1", VissibleName: "Papers", Type: api.TypeCollection, Parent: ""},
				{ID: "doc-0", VissibleName: "Readme", Type: api.TypeDocument, Parent: "", SizeInBytes: "100", PageCount: 2},
			},
			"dir-1": {
				{ID: "dir-2", VissibleName: "2024", Type: api.TypeCollection, Parent: "dir-1"},
				{ID: "doc-1", VissibleName: "Attention", Type: api.TypeDocument, Parent: "dir-1", SizeInBytes: "2048", PageCount: 15},
			},
			"dir-2": {
				{ID: "doc-2", VissibleName: "Mamba", Type: api.TypeDocument, Parent: "dir-2", SizeInBytes: "4096", PageCount: 36},
			},
		},
		uploads: make(map[string][]byte),
	}
}

func (f *fakeDevice) ReadFolder(ctx context.Context, folderID string) ([]api.DocumentInfo, error) {
	f.readOrder = append(f.readOrder, folderID)
	infos, ok := f.folders[folderID]
	if !ok {
		return nil, fmt.Errorf("unknown folder %q", folderID)
	}
	return infos, nil
}

func (f *fakeDevice) DownloadDocument(ctx context.Context, documentID string, w io.Writer) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	_, err := fmt.Fprintf(w, "content of %s", documentID)
	return err
}

func (f *fakeDevice) UploadDocument(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploads[name] = data
	return nil
}

func (f *fakeDevice) Mkdir(ctx context.Context, path string) error {
	return fmt.Errorf("mkdir %q: %w", path, api.ErrMkdirUnsupported)
}

func TestList_NonRecursive(t *testing.T) {
	lib := New(newFakeDevice())

	entries, err := lib.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Papers", entries[0].Path())
	assert.Equal(t, "Readme.pdf", entries[1].Path())
}

func TestList_Recursive(t *testing.T) {
	lib := New(newFakeDevice())

	entries, err := lib.List(context.Background(), true)
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path())
	}
	// A folder's own entries come before its subfolders' contents.
	assert.Equal(t, []string{
		"Papers",
		"Readme.pdf",
		"Papers/2024",
		"Papers/Attention.pdf",
		"Papers/2024/Mamba.pdf",
	}, paths)
}

func TestList_DocumentFields(t *testing.T) {
	lib := New(newFakeDevice())

	entries, err := lib.List(context.Background(), true)
	require.NoError(t, err)

	var mamba *Document
	for _, e := range entries {
		if d, ok := e.(*Document); ok && d.Name == "Mamba" {
			mamba = d
		}
	}
	require.NotNil(t, mamba)
	assert.Equal(t, "doc-2", mamba.ID)
	assert.Equal(t, int64(4096), mamba.Size)
	assert.Equal(t, 36, mamba.PageCount)
	assert.Equal(t, "pdf", mamba.Extension)
}

func TestFind(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	entries, err := lib.List(ctx, true)
	require.NoError(t, err)

	tests := []struct {
		path   string
		wantID string
	}{
		{"Readme.pdf", "doc-0"},
		{"Readme", "doc-0"}, // .pdf suffix is optional
		{"Papers", "dir-1"},
		{"Papers/Attention.pdf", "doc-1"},
		{"Papers/2024", "dir-2"},
		{"Papers/2024/Mamba.pdf", "doc-2"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, err := lib.Find(ctx, tt.path, entries)
			require.NoError(t, err)
			require.NotNil(t, e, "entry should exist at %s", tt.path)
			assert.Equal(t, tt.wantID, e.Meta().ID)
		})
	}
}

func TestFind_Missing(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	entries, err := lib.List(ctx, true)
	require.NoError(t, err)

	for _, p := range []string{"Nope.pdf", "Papers/Nope.pdf", "Nope/Mamba.pdf"} {
		e, err := lib.Find(ctx, p, entries)
		require.NoError(t, err)
		assert.Nil(t, e, "no entry should exist at %s", p)
	}
}

func TestFind_SameNameDifferentFolders(t *testing.T) {
	dev := newFakeDevice()
	// A second "Attention" at root must not shadow the one in Papers.
	dev.folders[""] = append(dev.folders[""], api.DocumentInfo{
		ID: "doc-9", VissibleName: "Attention", Type: api.TypeDocument, Parent: "", SizeInBytes: "1",
	})
	lib := New(dev)
	ctx := context.Background()

	e, err := lib.Find(ctx, "Papers/Attention.pdf", nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "doc-1", e.Meta().ID)

	e, err = lib.Find(ctx, "Attention.pdf", nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "doc-9", e.Meta().ID)
}

func TestHas(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	entries, err := lib.List(ctx, true)
	require.NoError(t, err)

	ok, err := lib.Has(ctx, "Papers/2024/Mamba.pdf", entries)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lib.Has(ctx, "Papers/2025/Mamba.pdf", entries)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureFolder(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	t.Run("existing folder", func(t *testing.T) {
		f, err := lib.EnsureFolder(ctx, "Papers/2024", true, true, nil)
		require.NoError(t, err)
		assert.Equal(t, "dir-2", f.ID)
	})

	t.Run("existing folder with existsOK false", func(t *testing.T) {
		_, err := lib.EnsureFolder(ctx, "Papers", false, false, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("missing folder cannot be created", func(t *testing.T) {
		_, err := lib.EnsureFolder(ctx, "Papers/2025", true, true, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrMkdirUnsupported)
	})

	t.Run("document in the way", func(t *testing.T) {
		_, err := lib.EnsureFolder(ctx, "Readme", true, true, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "document")
	})

	t.Run("missing parent without parents flag", func(t *testing.T) {
		_, err := lib.EnsureFolder(ctx, "Nope/2024", true, false, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parent folder")
	})
}

func TestUpload(t *testing.T) {
	dev := newFakeDevice()
	lib := New(dev)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "new.pdf")
	require.NoError(t, os.WriteFile(local, []byte("pdf bytes"), 0644))

	err := lib.Upload(ctx, local, "Papers/2024/new.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, []byte("pdf bytes"), dev.uploads["new.pdf"])
	// The target folder must be the last one listed before the upload,
	// since the device uploads into the most recently listed folder.
	require.NotEmpty(t, dev.readOrder)
	assert.Equal(t, "dir-2", dev.readOrder[len(dev.readOrder)-1])
}

func TestUpload_RootFolder(t *testing.T) {
	dev := newFakeDevice()
	lib := New(dev)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "root.pdf")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	err := lib.Upload(ctx, local, "root.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "", dev.readOrder[len(dev.readOrder)-1])
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	err := lib.Upload(ctx, "notes.epub", "notes.epub", []Entry{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only PDF")
}

func TestUpload_MissingParentFolder(t *testing.T) {
	lib := New(newFakeDevice())
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "new.pdf")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	err := lib.Upload(ctx, local, "Missing/new.pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrMkdirUnsupported)
}

func TestDownload(t *testing.T) {
	dev := newFakeDevice()
	lib := New(dev)
	ctx := context.Background()

	entries, err := lib.List(ctx, true)
	require.NoError(t, err)

	e, err := lib.Find(ctx, "Papers/Attention.pdf", entries)
	require.NoError(t, err)
	doc, ok := e.(*Document)
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, lib.Download(ctx, doc, &buf))
	assert.Equal(t, "content of doc-1", buf.String())
}

func TestDownload_PropagatesError(t *testing.T) {
	dev := newFakeDevice()
	dev.downloadErr = errors.New("device gone")
	lib := New(dev)

	doc := &Document{ID: "doc-1", Name: "Attention", Extension: "pdf"}
	err := lib.Download(context.Background(), doc, io.Discard)
	assert.ErrorIs(t, err, dev.downloadErr)
}
