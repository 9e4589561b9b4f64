// Package downloader exports the image pages of a loaded book to a CBZ
// archive.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	"go.uber.org/multierr"

	"github.com/brogergvhs/tachi/internal/util"
)

// Progress receives export progress. ui.ProgressHandle implements it.
type Progress interface {
	Update(done, total int, bytes int64)
	MarkDone()
}

type nopProgress struct{}

func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone()              {}

type Downloader struct {
	client     *http.Client
	outputDir  string
	skipBroken bool
	attempts   int
	backoff    time.Duration
}

func New(c *http.Client, outputDir string, skipBroken bool) *Downloader {
	return &Downloader{
		client:     c,
		outputDir:  outputDir,
		skipBroken: skipBroken,
		attempts:   3,
		backoff:    time.Second,
	}
}

// BaseName is the file stem an export of title is written under.
func BaseName(title string) string {
	name := slug.Make(title)
	if name == "" {
		name = "book"
	}
	return name
}

type Result struct {
	Archive string
	Pages   int
	Bytes   int64
	Failed  int
}

// Export downloads pages into a temporary folder under the output
// directory and packs them into <slug>.cbz. The folder is removed
// afterwards.
func (d *Downloader) Export(ctx context.Context, title, referer string, pages []Numbered, workers int, ph Progress) (Result, error) {
	base := BaseName(title)
	folder := filepath.Join(d.outputDir, base+"_tmp")
	defer util.CleanupFolder(folder)

	files, bytes, err := d.DownloadPages(ctx, pages, folder, referer, workers, ph)
	res := Result{Pages: len(files), Bytes: bytes, Failed: len(pages) - len(files)}
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, errors.New("no pages downloaded")
	}

	res.Archive = filepath.Join(d.outputDir, base+".cbz")
	if err := util.CreateCBZ(files, res.Archive); err != nil {
		return res, err
	}

	return res, nil
}

type exportState struct {
	mu        sync.Mutex
	done      int
	total     int
	doneBytes int64
}

func (s *exportState) step(ph Progress, delta int64, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doneBytes += delta
	if finished {
		s.done++
	}
	ph.Update(s.done, s.total, s.doneBytes)
}

// DownloadPages fetches every page with up to maxParallel workers. File
// names keep the page number; the extension comes from the sniffed image
// type.
func (d *Downloader) DownloadPages(
	ctx context.Context,
	pages []Numbered,
	folder string,
	referer string,
	maxParallel int,
	ph Progress,
) ([]string, int64, error) {
	if ph == nil {
		ph = nopProgress{}
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, 0, err
	}

	total := len(pages)
	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > total && total > 0 {
		maxParallel = total
	}

	st := &exportState{total: total}
	ph.Update(0, total, 0)

	var (
		mu    sync.Mutex
		files = make([]string, 0, total)
		errs  error
	)

	jobs := make(chan Numbered)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for p := range jobs {
			stem := filepath.Join(folder, fmt.Sprintf("page_%04d", p.Number))

			var last int64
			progress := func(done int64) {
				if delta := done - last; delta > 0 {
					last = done
					st.step(ph, delta, false)
				}
			}

			path, err := d.downloadWithRetry(ctx, p.Page.Locator, stem, referer, progress)
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("page %d: %w", p.Number, err))
				mu.Unlock()
			} else {
				mu.Lock()
				files = append(files, path)
				mu.Unlock()
			}

			st.step(ph, 0, true)
		}
	}

	wg.Add(maxParallel)
	for w := 0; w < maxParallel; w++ {
		go worker()
	}

	for _, p := range pages {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			ph.MarkDone()
			return files, st.doneBytes, ctx.Err()
		case jobs <- p:
		}
	}

	close(jobs)
	wg.Wait()
	ph.MarkDone()

	if failed := len(multierr.Errors(errs)); failed > 0 && !d.skipBroken {
		return files, st.doneBytes, fmt.Errorf("failed %d/%d pages (use --skip-broken to continue): %w", failed, total, errs)
	}

	return files, st.doneBytes, nil
}

func (d *Downloader) downloadWithRetry(
	ctx context.Context,
	url string,
	stem string,
	referer string,
	progress func(done int64),
) (string, error) {
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		var path string
		path, err = d.download(ctx, url, stem, referer, progress)
		if err == nil {
			return path, nil
		}
		if attempt == d.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * d.backoff):
		}
	}

	return "", err
}

func (d *Downloader) download(
	ctx context.Context,
	u, stem, referer string,
	progress func(done int64),
) (path string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { err = multierr.Append(err, resp.Body.Close()) }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") && mt != "application/octet-stream" {
			return "", fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	tmp := stem + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}

	counter := &countingWriter{w: f, progress: progress}
	_, err = io.Copy(counter, resp.Body)
	err = multierr.Append(err, f.Close())
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	ext, err := sniffExt(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	path = stem + ext
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}

	return path, nil
}

// sniffExt returns the extension of the image stored at path.
func sniffExt(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}

	kind, _ := filetype.Match(head[:n])
	if !filetype.IsImage(head[:n]) || kind == filetype.Unknown {
		return "", errors.New("downloaded file is not an image")
	}

	return "." + kind.Extension, nil
}

type countingWriter struct {
	w        io.Writer
	n        int64
	progress func(done int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.n += int64(n)
		if c.progress != nil {
			c.progress(c.n)
		}
	}
	return n, err
}
