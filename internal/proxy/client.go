// Package proxy is the content proxy: the HTTP handlers that pass remote
// documents through to the reader, and the client the loader fetches with.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brogergvhs/tachi/internal/util"
)

const (
	DefaultProxyPath = "/proxy"
	FramePath        = "/frame"
	GitHubPath       = "/github-proxy"
)

type Logger interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

// Client fetches documents through a running proxy server, or directly
// when no server root is configured or Direct is set. Frame URLs always
// point at the server.
type Client struct {
	Direct bool

	client    *http.Client
	root      string
	proxyPath string
	attempts  int
	backoff   time.Duration
	log       Logger
}

func NewClient(c *http.Client, root, proxyPath string, log Logger) *Client {
	if proxyPath == "" {
		proxyPath = DefaultProxyPath
	}

	return &Client{
		client:    c,
		root:      strings.TrimSuffix(root, "/"),
		proxyPath: proxyPath,
		attempts:  3,
		backoff:   500 * time.Millisecond,
		log:       log,
	}
}

// ProxyURL is the proxied location of target.
func (c *Client) ProxyURL(target string) string {
	return c.root + c.proxyPath + "?url=" + url.QueryEscape(target)
}

// FrameURL is where a whole page is shown in frame mode. With a book the
// frame route applies the book's injection, without one the page is
// plainly proxied.
func (c *Client) FrameURL(bookID, target string) string {
	if bookID == "" {
		return c.ProxyURL(target)
	}

	q := url.Values{}
	q.Set("book", bookID)
	q.Set("url", target)

	return c.root + FramePath + "?" + q.Encode()
}

// Fetch returns the body of target as text. Any status of 400 or above is
// an error.
func (c *Client) Fetch(ctx context.Context, target string) (string, error) {
	endpoint := target
	if c.root != "" && !c.Direct {
		endpoint = c.ProxyURL(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := util.DoWithRetry(c.client, req, c.attempts, c.backoff)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	c.log.Debugf("proxy: fetched %s (%d bytes)", target, len(body))
	return string(body), nil
}
