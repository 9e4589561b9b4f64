package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/brogergvhs/tachi/internal/config"
	"github.com/brogergvhs/tachi/internal/injection"
	"github.com/brogergvhs/tachi/internal/library"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	flagExportDir  string
	flagSetDefault bool
	flagSyncImport bool
	flagPreviewOut string
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage the local book library",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List books in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		books := rt.library.Books()
		if len(books) == 0 {
			fmt.Println("Library is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tURL\tREADER\tOVERRIDES")
		for _, b := range books {
			mode := "frame"
			if b.BookReader.Enabled {
				mode = string(b.BookReader.DisplayMode())
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", b.ID, b.Name, b.URL, mode, len(b.Injections.Subdomains))
		}

		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import book descriptor files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		var failed int
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				rt.log.Errorf("%s: %v", path, err)
				failed++
				continue
			}

			b, err := rt.library.Import(data)
			if err != nil {
				rt.log.Errorf("%s: %v", path, err)
				failed++
				continue
			}

			fmt.Printf("Imported %q (%s)\n", b.Name, b.ID)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be imported", failed, len(args))
		}
		return nil
	},
}

var libraryExportCmd = &cobra.Command{
	Use:   "export <book>",
	Short: "Write a book descriptor without library fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		b, err := rt.library.Find(args[0])
		if err != nil {
			return err
		}

		data, err := book.Export(b)
		if err != nil {
			return err
		}

		if flagExportDir == "-" {
			_, err := os.Stdout.Write(append(data, '\n'))
			return err
		}

		if err := os.MkdirAll(flagExportDir, 0755); err != nil {
			return fmt.Errorf("cannot create output folder: %w", err)
		}
		path := filepath.Join(flagExportDir, library.ExportFileName(b))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}

		fmt.Println("Exported to", path)
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <book>",
	Short: "Remove a book from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		b, err := rt.library.Find(args[0])
		if err != nil {
			return err
		}

		if !askYesNo(fmt.Sprintf("Remove %q from the library?", b.Name)) {
			fmt.Println("Aborted.")
			return nil
		}

		if err := rt.library.Remove(b.ID); err != nil {
			return err
		}

		fmt.Printf("Removed %q\n", b.Name)
		return nil
	},
}

var libraryNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a book from the default template",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		tpl := book.Template()
		if len(args) == 1 {
			tpl.Name = args[0]
		}

		b, err := rt.library.Add(tpl)
		if err != nil {
			return err
		}

		fmt.Printf("Created %q (%s)\n", b.Name, b.ID)
		fmt.Printf("Use `tachi library edit %s` to configure it.\n", b.ID)
		return nil
	},
}

var libraryEditCmd = &cobra.Command{
	Use:   "edit <book>",
	Short: "Edit a book descriptor in $EDITOR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		b, err := rt.library.Find(args[0])
		if err != nil {
			return err
		}

		data, err := book.Export(b)
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp("", "tachi-*.repo")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name())

		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		if err := openEditor(tmp.Name()); err != nil {
			return err
		}

		edited, err := os.ReadFile(tmp.Name())
		if err != nil {
			return err
		}

		parsed, err := book.Parse(edited)
		if err != nil {
			return fmt.Errorf("descriptor not saved: %w", err)
		}

		updated, err := rt.library.Update(b.ID, func(dst *book.Book) {
			parsed.Path, parsed.Source = dst.Path, dst.Source
			*dst = *parsed
		})
		if err != nil {
			return err
		}

		fmt.Printf("Saved %q\n", updated.Name)
		return nil
	},
}

var libraryPreviewCmd = &cobra.Command{
	Use:   "preview <book> <url>",
	Short: "Render a page with the book's CSS and HTML injections applied",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		b, err := rt.resolveBook(args[0])
		if err != nil {
			return err
		}

		html, err := renderPreview(context.Background(), rt.proxy, rt.resolver, b, args[1])
		if err != nil {
			return err
		}

		if flagPreviewOut == "" || flagPreviewOut == "-" {
			_, err := fmt.Fprintln(os.Stdout, html)
			return err
		}
		if err := os.WriteFile(flagPreviewOut, []byte(html), 0644); err != nil {
			return err
		}

		fmt.Println("Preview written to", flagPreviewOut)
		return nil
	},
}

type documentFetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// renderPreview fetches target and applies the fragment b resolves for it.
// Scripts are not part of a preview.
func renderPreview(ctx context.Context, f documentFetcher, r *injection.Resolver, b *book.Book, target string) (string, error) {
	body, err := f.Fetch(ctx, target)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}

	return injection.Preview(body, r.Resolve(b, target))
}

var libraryPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a book interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		b, err := pickBook(rt.library)
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s\n", b.ID, b.Name)
		if !flagSetDefault {
			return nil
		}

		path, err := config.ActiveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.LoadYAML(path)
		if err != nil {
			return err
		}

		cfg.DefaultBook = b.ID
		if err := config.SaveYAML(cfg, path); err != nil {
			return err
		}

		fmt.Printf("default_book set in %s\n", path)
		return nil
	},
}

var libraryRepoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage GitHub repositories that publish book descriptors",
}

var libraryRepoAddCmd = &cobra.Command{
	Use:   "add <owner/repo | url>",
	Short: "Track a GitHub repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		r, err := rt.library.AddGitHubRepo(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Tracking %s (%s)\n", r.URL, r.ID)
		return nil
	},
}

var libraryRepoRemoveCmd = &cobra.Command{
	Use:   "remove <id | url>",
	Short: "Stop tracking a GitHub repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		if err := rt.library.RemoveGitHubRepo(args[0]); err != nil {
			return err
		}

		fmt.Println("Removed", args[0])
		return nil
	},
}

var libraryRepoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked GitHub repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tURL\tADDED")
		for _, r := range rt.library.GitHubRepos() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.URL, r.AddedAt.Format("2006-01-02"))
		}

		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

var libraryRepoSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "List the descriptors published by tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(baseOptions())
		if err != nil {
			return err
		}

		repos := rt.library.GitHubRepos()
		if len(repos) == 0 {
			return errors.New("no repositories tracked; add one with `tachi library repo add`")
		}

		src := library.NewGitHubSource(rt.client, flagGitHubAPI, rt.log)
		books, syncErr := src.Sync(context.Background(), repos)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tPATH\tSOURCE")
		for _, b := range books {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Path, b.Source)
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}

		if flagSyncImport {
			added, updated, err := importSynced(rt.library, books)
			fmt.Printf("\nImported %d new, updated %d\n", added, updated)
			if err != nil {
				syncErr = multierr.Append(syncErr, err)
			}
		}

		return syncErr
	},
}

// importSynced stores repository books, updating the one already imported
// from the same source and path.
func importSynced(store *library.Store, books []book.Book) (added, updated int, err error) {
	existing := map[string]string{}
	for _, b := range store.Books() {
		if b.Source != "" {
			existing[b.Source+"\x00"+b.Path] = b.ID
		}
	}

	for i := range books {
		nb := books[i]

		if id, ok := existing[nb.Source+"\x00"+nb.Path]; ok {
			_, uerr := store.Update(id, func(dst *book.Book) { *dst = nb })
			if uerr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", nb.Path, uerr))
				continue
			}
			updated++
			continue
		}

		if _, aerr := store.Add(&nb); aerr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", nb.Path, aerr))
			continue
		}
		added++
	}

	return added, updated, err
}

func init() {
	libraryExportCmd.Flags().StringVarP(&flagExportDir, "output", "o", ".", "output folder, or - for stdout")
	libraryPreviewCmd.Flags().StringVarP(&flagPreviewOut, "output", "o", "", "write the preview to a file instead of stdout")
	libraryPickCmd.Flags().BoolVar(&flagSetDefault, "set-default", false, "store the choice as default_book in the active config")
	libraryRepoSyncCmd.Flags().BoolVar(&flagSyncImport, "import", false, "import the listed books into the library")
	libraryRepoSyncCmd.Flags().StringVar(&flagGitHubAPI, "github-api", library.DefaultAPIBase, "GitHub API base URL")

	libraryRepoCmd.AddCommand(libraryRepoAddCmd, libraryRepoRemoveCmd, libraryRepoListCmd, libraryRepoSyncCmd)
	libraryCmd.AddCommand(
		libraryListCmd,
		libraryImportCmd,
		libraryExportCmd,
		libraryRemoveCmd,
		libraryNewCmd,
		libraryEditCmd,
		libraryPreviewCmd,
		libraryPickCmd,
		libraryRepoCmd,
	)
	rootCmd.AddCommand(libraryCmd)
}
