package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/config"
	"github.com/brogergvhs/tachi/internal/injection"
	"github.com/brogergvhs/tachi/internal/library"
	"github.com/brogergvhs/tachi/internal/loader"
	"github.com/brogergvhs/tachi/internal/proxy"
	"github.com/brogergvhs/tachi/internal/settings"
	"github.com/brogergvhs/tachi/internal/ui"
	"github.com/brogergvhs/tachi/internal/util"

	"github.com/manifoldco/promptui"
)

// runtime is everything a command needs, built once from the merged
// config.
type runtime struct {
	cfg      *config.Config
	log      *ui.Logger
	client   *http.Client
	library  *library.Store
	settings *settings.Store
	resolver *injection.Resolver
	proxy    *proxy.Client
	loader   *loader.Loader
}

func baseOptions() config.Options {
	return config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflareBypass,
		TimeoutSeconds:   flagTimeout,
	}
}

func newRuntime(opts config.Options) (*runtime, error) {
	cfg, usedPath, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}

	log := ui.NewLogger(cfg.Debug)
	log.Debugf("config: %s", strings.TrimSpace(usedPath))

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Timeout(),
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
	if err != nil {
		return nil, err
	}

	resolver := injection.NewResolver(log)

	// Commands run without the server, so documents are fetched directly
	// while frame URLs still point at `tachi serve`.
	pc := proxy.NewClient(client, "http://"+cfg.Listen, cfg.ProxyPath, log)
	pc.Direct = true

	return &runtime{
		cfg:      cfg,
		log:      log,
		client:   client,
		library:  library.Open(config.LibraryFile(), log),
		settings: settings.Open(config.SettingsFile(), log),
		resolver: resolver,
		proxy:    pc,
		loader:   loader.New(pc, resolver, log),
	}, nil
}

// resolveBook finds ref as a descriptor file or a library book. An empty
// ref falls back to default_book, then to an interactive pick.
func (rt *runtime) resolveBook(ref string) (*book.Book, error) {
	if ref == "" {
		ref = rt.cfg.DefaultBook
	}
	if ref == "" {
		return pickBook(rt.library)
	}

	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		f, err := os.Open(ref)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		b, err := book.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		return b, nil
	}

	return rt.library.Find(ref)
}

// targetURL picks the page to open: the explicit argument, then the book's
// own URL, then default_url.
func (rt *runtime) targetURL(b *book.Book, args []string) (string, error) {
	switch {
	case len(args) > 0 && args[0] != "":
		return args[0], nil
	case b != nil && b.URL != "":
		return b.URL, nil
	case rt.cfg.DefaultURL != "":
		return rt.cfg.DefaultURL, nil
	}

	return "", errors.New("no URL given and the book has none (pass one or set default_url)")
}

func pickBook(store *library.Store) (*book.Book, error) {
	books := store.Books()
	if len(books) == 0 {
		return nil, errors.New("library is empty; import a book with `tachi library import`")
	}

	items := make([]string, len(books))
	for i, b := range books {
		items[i] = fmt.Sprintf("%s  (%s)", b.Name, b.URL)
	}

	prompt := promptui.Select{
		Label: "Select book",
		Items: items,
		Size:  12,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled")
	}

	return &books[idx], nil
}

// openEditor opens path in $VISUAL, $EDITOR or vi.
func openEditor(path string) error {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	parts := strings.Fields(editor)
	c := exec.Command(parts[0], append(parts[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	return nil
}

// askYesNo prints question with a [y/N] suffix and reads one line from stdin.
func askYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	resp, _ := reader.ReadString('\n')
	resp = strings.TrimSpace(strings.ToLower(resp))

	return resp == "y" || resp == "yes"
}
