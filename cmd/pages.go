package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/tachi/internal/book"

	"github.com/spf13/cobra"
)

var flagBook string

func init() {
	pagesCmd := &cobra.Command{
		Use:   "pages [url]",
		Short: "Load a URL with a book's reader config and list the pages it yields",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPages,
	}

	pagesCmd.Flags().StringVarP(&flagBook, "book", "b", "", "book id, name or descriptor file")

	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(baseOptions())
	if err != nil {
		return err
	}

	b, err := rt.resolveBook(flagBook)
	if err != nil {
		return err
	}

	target, err := rt.targetURL(b, args)
	if err != nil {
		return err
	}

	content, err := rt.loader.Load(context.Background(), b, target)
	if err != nil {
		return err
	}

	title := content.Title
	if title == "" {
		title = "N/A"
	}

	fmt.Printf("Book:     %s\n", b.Name)
	fmt.Printf("URL:      %s\n", content.URL)
	fmt.Printf("Title:    %s\n", title)
	fmt.Printf("Mode:     %s (extracted: %t)\n", content.Mode, content.Extracted)
	if content.Next != "" {
		fmt.Printf("Next:     %s\n", content.Next)
	}
	if content.Prev != "" {
		fmt.Printf("Prev:     %s\n", content.Prev)
	}
	fmt.Printf("Pages:    %d\n\n", len(content.Pages))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, p := range content.Pages {
		_, _ = fmt.Fprintf(w, "%4d\t%s\t%s\n", i+1, p.Kind, p.Locator)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
	}

	if !content.Extracted {
		fmt.Println()
		fmt.Println("No reader config applies to this URL; it opens as a single framed page.")
	} else if countImages(content.Pages) == 0 {
		fmt.Println()
		fmt.Println("Reader config applies but no images matched the selector.")
	}

	return nil
}

func countImages(pages []book.Page) int {
	n := 0
	for _, p := range pages {
		if p.Kind == book.PageImage {
			n++
		}
	}
	return n
}
