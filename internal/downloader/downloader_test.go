package downloader

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/brogergvhs/tachi/internal/book"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/2":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegBytes)
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		case "/text-as-octet":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("plain text"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func numbered(base string, paths ...string) []Numbered {
	out := make([]Numbered, len(paths))
	for i, p := range paths {
		out[i] = Numbered{Number: i + 1, Page: book.Page{Kind: book.PageImage, Locator: base + p}}
	}
	return out
}

type recorder struct {
	updates int
	done    bool
}

func (r *recorder) Update(int, int, int64) { r.updates++ }
func (r *recorder) MarkDone()              { r.done = true }

func TestDownloadPages(t *testing.T) {
	srv := newImageServer(t)
	d := New(srv.Client(), t.TempDir(), false)
	folder := t.TempDir()

	rec := &recorder{}
	files, bytes, err := d.DownloadPages(context.Background(), numbered(srv.URL, "/1", "/2"), folder, "", 4, rec)
	require.NoError(t, err)

	sort.Strings(files)
	assert.Equal(t, []string{
		filepath.Join(folder, "page_0001.png"),
		filepath.Join(folder, "page_0002.jpg"),
	}, files)
	assert.Equal(t, int64(len(pngBytes)+len(jpegBytes)), bytes)
	assert.True(t, rec.done)
	assert.Greater(t, rec.updates, 2)
}

func TestDownloadPages_Broken(t *testing.T) {
	srv := newImageServer(t)
	pages := numbered(srv.URL, "/1", "/missing", "/html", "/text-as-octet")

	d := New(srv.Client(), t.TempDir(), false)
	d.attempts = 1

	files, _, err := d.DownloadPages(context.Background(), pages, t.TempDir(), "", 2, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed 3/4 pages")
	assert.Len(t, files, 1)

	d.skipBroken = true
	files, _, err = d.DownloadPages(context.Background(), pages, t.TempDir(), "", 2, nil)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestExport(t *testing.T) {
	srv := newImageServer(t)
	out := t.TempDir()
	d := New(srv.Client(), out, false)

	res, err := d.Export(context.Background(), "Chapter 1: The Start", srv.URL, numbered(srv.URL, "/1", "/2"), 2, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "chapter-1-the-start.cbz"), res.Archive)
	assert.Equal(t, 2, res.Pages)
	assert.Zero(t, res.Failed)
	assert.NoDirExists(t, filepath.Join(out, "chapter-1-the-start_tmp"))

	r, err := zip.OpenReader(res.Archive)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.File, 2)
	assert.Equal(t, "page_0001.png", r.File[0].Name)
}

func TestExport_NothingDownloaded(t *testing.T) {
	srv := newImageServer(t)
	d := New(srv.Client(), t.TempDir(), true)
	d.attempts = 1

	_, err := d.Export(context.Background(), "x", "", numbered(srv.URL, "/missing"), 1, nil)
	assert.EqualError(t, err, "no pages downloaded")
}

func TestDownloadPages_Cancelled(t *testing.T) {
	srv := newImageServer(t)
	d := New(srv.Client(), t.TempDir(), false)
	d.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var pages []Numbered
	for i := 0; i < 20; i++ {
		pages = append(pages, numbered(srv.URL, fmt.Sprintf("/missing%d", i))...)
	}

	_, _, err := d.DownloadPages(ctx, pages, t.TempDir(), "", 1, nil)
	assert.Error(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "one-piece-ch-1", BaseName("One Piece - Ch. 1"))
	assert.Equal(t, "book", BaseName("???"))
}
