package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/h2non/filetype"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/injection"
	"github.com/brogergvhs/tachi/internal/library"
)

// BookFinder looks books up for the frame route.
type BookFinder interface {
	Find(ref string) (*book.Book, error)
}

type ServerOptions struct {
	Client    *http.Client
	Books     BookFinder
	Resolver  *injection.Resolver
	GitHubAPI string
	ProxyPath string
	Log       Logger
}

type Server struct {
	client    *http.Client
	books     BookFinder
	resolver  *injection.Resolver
	github    *library.GitHubSource
	proxyPath string
	log       Logger
	mux       *http.ServeMux
}

func NewServer(opts ServerOptions) *Server {
	if opts.ProxyPath == "" {
		opts.ProxyPath = DefaultProxyPath
	}

	s := &Server{
		client:    opts.Client,
		books:     opts.Books,
		resolver:  opts.Resolver,
		github:    library.NewGitHubSource(opts.Client, opts.GitHubAPI, opts.Log),
		proxyPath: opts.ProxyPath,
		log:       opts.Log,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET "+s.proxyPath, s.handleProxy)
	s.mux.HandleFunc("GET "+GitHubPath, s.handleGitHub)
	s.mux.HandleFunc("GET "+FramePath, s.handleFrame)

	return s
}

func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// contentType keeps the upstream type, sniffing binary bodies that came
// without one.
func contentType(upstream string, body []byte) string {
	if upstream != "" {
		return upstream
	}
	if kind, err := filetype.Match(body); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}

	return "application/octet-stream"
}

func (s *Server) upstream(ctx context.Context, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSONError(w, http.StatusBadRequest, "URL parameter required")
		return
	}

	resp, body, err := s.upstream(r.Context(), target)
	if err != nil {
		s.log.Errorf("proxy: %s: %v", target, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ct := resp.Header.Get("Content-Type")
	if isHTML(ct) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", contentType(ct, body))
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func (s *Server) handleGitHub(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, repo := q.Get("owner"), q.Get("repo")
	if owner == "" || repo == "" {
		writeJSONError(w, http.StatusBadRequest, "Owner and repo parameters required")
		return
	}

	resp, err := s.github.Contents(r.Context(), owner, repo, q.Get("path"))
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		s.log.Errorf("proxy: github %s/%s: %v", owner, repo, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// handleFrame serves a whole page with the book's resolved injection
// applied, for frame mode.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("url")
	if target == "" {
		writeJSONError(w, http.StatusBadRequest, "URL parameter required")
		return
	}

	var b *book.Book
	if ref := q.Get("book"); ref != "" && s.books != nil {
		found, err := s.books.Find(ref)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		b = found
	}

	resp, body, err := s.upstream(r.Context(), target)
	if err != nil {
		s.log.Errorf("proxy: frame %s: %v", target, err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTML(ct) {
		w.Header().Set("Content-Type", contentType(ct, body))
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("parse %s: %v", target, err))
		return
	}

	if doc.Find("head base[href]").Length() == 0 {
		doc.Find("head").PrependHtml(fmt.Sprintf(`<base href="%s">`, htmlAttr(target)))
	}
	injection.Apply(doc, s.resolver.Resolve(b, target))

	out, err := doc.Html()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, out)
}

func htmlAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;").Replace(s)
}
