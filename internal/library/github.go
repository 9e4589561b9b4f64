package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/util"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DescriptorExt  = ".repo"

	apiAccept    = "application/vnd.github.v3+json"
	apiUserAgent = "tachi"
)

type contentItem struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	DownloadURL string `json:"download_url"`
}

// GitHubSource lists book descriptors published in GitHub repositories
// through the contents API.
type GitHubSource struct {
	client  *http.Client
	apiBase string
	log     Logger
	workers int
}

func NewGitHubSource(client *http.Client, apiBase string, log Logger) *GitHubSource {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	return &GitHubSource{
		client:  client,
		apiBase: strings.TrimSuffix(apiBase, "/"),
		log:     log,
		workers: 4,
	}
}

// ContentsURL is the contents API endpoint for dir in owner/repo.
func ContentsURL(apiBase, owner, repo, dir string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents", strings.TrimSuffix(apiBase, "/"), url.PathEscape(owner), url.PathEscape(repo))
	for seg := range strings.SplitSeq(strings.Trim(dir, "/"), "/") {
		if seg != "" {
			u += "/" + url.PathEscape(seg)
		}
	}
	return u
}

// Contents performs one raw contents API call.
func (g *GitHubSource) Contents(ctx context.Context, owner, repo, dir string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ContentsURL(g.apiBase, owner, repo, dir), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", apiAccept)
	req.Header.Set("User-Agent", apiUserAgent)

	return util.DoWithRetry(g.client, req, 2, 0)
}

// List walks the repository and parses every descriptor file. Descriptors
// that fail to load are skipped and reported in the returned error; the
// books that did load are returned either way, ordered by path.
func (g *GitHubSource) List(ctx context.Context, r GitHubRepo) ([]book.Book, error) {
	files, err := g.walk(ctx, r.Owner, r.Name, "")
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return natural.Less(files[i].Path, files[j].Path) })

	var (
		mu   sync.Mutex
		errs error
	)
	books := make([]*book.Book, len(files))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, item := range files {
		eg.Go(func() error {
			b, err := g.descriptor(ectx, item)
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", item.Path, err))
				mu.Unlock()
				return nil
			}

			b.Source = r.URL
			books[i] = b
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]book.Book, 0, len(books))
	for _, b := range books {
		if b != nil {
			out = append(out, *b)
		}
	}

	g.log.Debugf("library: %s/%s has %d descriptors, %d loaded", r.Owner, r.Name, len(files), len(out))
	return out, errs
}

// Sync lists every repository, collecting what loaded and every failure.
func (g *GitHubSource) Sync(ctx context.Context, repos []GitHubRepo) ([]book.Book, error) {
	var (
		all  []book.Book
		errs error
	)

	for _, r := range repos {
		books, err := g.List(ctx, r)
		if err != nil {
			g.log.Warnf("library: syncing %s: %v", r.URL, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.URL, err))
		}
		all = append(all, books...)
	}

	return all, errs
}

func (g *GitHubSource) walk(ctx context.Context, owner, repo, dir string) ([]contentItem, error) {
	resp, err := g.Contents(ctx, owner, repo, dir)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var items []contentItem
	if err := json.Unmarshal(body, &items); err != nil {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("github: %s", apiErr.Message)
		}
		return nil, fmt.Errorf("github: failed to fetch repo contents (HTTP %d)", resp.StatusCode)
	}

	var files []contentItem
	for _, it := range items {
		switch {
		case it.Type == "file" && strings.HasSuffix(it.Name, DescriptorExt):
			files = append(files, it)
		case it.Type == "dir":
			sub, err := g.walk(ctx, owner, repo, it.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}

	return files, nil
}

func (g *GitHubSource) descriptor(ctx context.Context, it contentItem) (*book.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, it.DownloadURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", apiUserAgent)

	resp, err := util.DoWithRetry(g.client, req, 2, 0)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	b, err := book.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	b.ID = it.SHA
	b.Path = it.Path
	if b.Name == "" {
		b.Name = strings.TrimSuffix(path.Base(it.Name), DescriptorExt)
	}

	return b, nil
}
