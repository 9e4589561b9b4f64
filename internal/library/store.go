// Package library keeps the user's books and GitHub repository
// subscriptions in a single JSON document.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/tachi/internal/book"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrNotFound      = errors.New("not found in library")
	ErrInvalidGitHub = errors.New("invalid GitHub URL")
)

type Logger interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}

type GitHubRepo struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Owner   string    `json:"owner"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

type document struct {
	GitHubRepos []GitHubRepo `json:"githubRepos"`
	LocalRepos  []book.Book  `json:"localRepos"`
}

type Store struct {
	path string
	log  Logger
	now  func() time.Time

	mu   sync.Mutex
	data document
}

// Open loads the library at path. A missing file is an empty library; an
// unreadable one is logged and treated as empty, and invalid books are
// dropped with a warning.
func Open(path string, log Logger) *Store {
	s := &Store{path: path, log: log, now: time.Now}
	s.data = document{GitHubRepos: []GitHubRepo{}, LocalRepos: []book.Book{}}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		log.Warnf("library: reading %s failed, starting empty: %v", path, err)
		return s
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		log.Warnf("library: %s is malformed, starting empty: %v", path, err)
		return s
	}

	s.data.GitHubRepos = append(s.data.GitHubRepos, doc.GitHubRepos...)
	for i := range doc.LocalRepos {
		bk := doc.LocalRepos[i]
		if err := book.Validate(&bk); err != nil {
			log.Warnf("library: dropping book %s: %v", bk.ID, err)
			continue
		}
		if bk.Injections.Subdomains == nil {
			bk.Injections.Subdomains = []book.Override{}
		}
		s.data.LocalRepos = append(s.data.LocalRepos, bk)
	}

	return s
}

func (s *Store) Path() string { return s.path }

func (s *Store) Books() []book.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]book.Book(nil), s.data.LocalRepos...)
}

// Find looks a book up by ID, then by case-insensitive name.
func (s *Store) Find(ref string) (*book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(ref); i >= 0 {
		b := s.data.LocalRepos[i]
		return &b, nil
	}
	for _, b := range s.data.LocalRepos {
		if strings.EqualFold(b.Name, ref) {
			return &b, nil
		}
	}

	return nil, fmt.Errorf("book %q: %w", ref, ErrNotFound)
}

// Import parses a descriptor and adds it as a new book.
func (s *Store) Import(data []byte) (*book.Book, error) {
	b, err := book.Parse(data)
	if err != nil {
		return nil, err
	}

	return s.Add(b)
}

// Add stores b under a fresh ID. Library-only fields in b are replaced.
func (s *Store) Add(b *book.Book) (*book.Book, error) {
	if err := book.Validate(b); err != nil {
		return nil, err
	}

	nb := *b
	if strings.TrimSpace(nb.Name) == "" {
		nb.Name = book.Template().Name
	}
	now := s.now().UTC()
	nb.ID = uuid.NewString()
	nb.AddedAt = &now
	nb.UpdatedAt = nil

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.LocalRepos = append(s.data.LocalRepos, nb)
	if err := s.save(); err != nil {
		s.data.LocalRepos = s.data.LocalRepos[:len(s.data.LocalRepos)-1]
		return nil, err
	}

	s.log.Debugf("library: added %q (%s)", nb.Name, nb.ID)
	return &nb, nil
}

// Update edits the book with the given ID in place. fn must not change the
// ID; the result is validated before it is stored.
func (s *Store) Update(id string, fn func(*book.Book)) (*book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("book %q: %w", id, ErrNotFound)
	}

	prev := s.data.LocalRepos[i]
	next := prev
	fn(&next)
	if err := book.Validate(&next); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next.ID = prev.ID
	next.AddedAt = prev.AddedAt
	next.UpdatedAt = &now

	s.data.LocalRepos[i] = next
	if err := s.save(); err != nil {
		s.data.LocalRepos[i] = prev
		return nil, err
	}

	return &next, nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("book %q: %w", id, ErrNotFound)
	}

	prev := s.data.LocalRepos
	s.data.LocalRepos = append(append([]book.Book{}, prev[:i]...), prev[i+1:]...)
	if err := s.save(); err != nil {
		s.data.LocalRepos = prev
		return err
	}

	return nil
}

// ExportFileName is the file name a book is exported under.
func ExportFileName(b *book.Book) string {
	name := slug.Make(b.Name)
	if name == "" {
		name = "repo"
	}
	return name + ".repo"
}

func (s *Store) GitHubRepos() []GitHubRepo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]GitHubRepo(nil), s.data.GitHubRepos...)
}

// AddGitHubRepo subscribes to a repository. Adding the same URL twice
// returns the existing entry.
func (s *Store) AddGitHubRepo(raw string) (GitHubRepo, error) {
	owner, name, err := ParseGitHubURL(raw)
	if err != nil {
		return GitHubRepo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.data.GitHubRepos {
		if r.URL == raw {
			return r, nil
		}
	}

	r := GitHubRepo{
		ID:      uuid.NewString(),
		URL:     raw,
		Owner:   owner,
		Name:    name,
		AddedAt: s.now().UTC(),
	}
	s.data.GitHubRepos = append(s.data.GitHubRepos, r)
	if err := s.save(); err != nil {
		s.data.GitHubRepos = s.data.GitHubRepos[:len(s.data.GitHubRepos)-1]
		return GitHubRepo{}, err
	}

	return r, nil
}

// RemoveGitHubRepo removes a subscription by ID or URL.
func (s *Store) RemoveGitHubRepo(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.GitHubRepos
	kept := make([]GitHubRepo, 0, len(prev))
	for _, r := range prev {
		if r.ID != ref && r.URL != ref {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(prev) {
		return fmt.Errorf("repository %q: %w", ref, ErrNotFound)
	}

	s.data.GitHubRepos = kept
	if err := s.save(); err != nil {
		s.data.GitHubRepos = prev
		return err
	}

	return nil
}

var githubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

// ParseGitHubURL accepts "owner/repo" or any URL containing
// github.com/owner/repo.
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	for _, re := range githubPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			repo = strings.TrimSuffix(m[2], ".git")
			if m[1] == "" || repo == "" {
				break
			}
			return m[1], repo, nil
		}
	}

	return "", "", fmt.Errorf("%q: %w", raw, ErrInvalidGitHub)
}

func (s *Store) indexOf(id string) int {
	for i, b := range s.data.LocalRepos {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
