package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/tachi/internal/downloader"
	"github.com/brogergvhs/tachi/internal/ui"
	"github.com/brogergvhs/tachi/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagRange    string
	flagList     string
	flagChapters int

	// runtime
	flagOutput       string
	flagImageWorkers int
	flagSkipBroken   bool
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export [url]",
		Short: "Download the image pages of a URL into a CBZ archive. Uses the defaults from the selected config, overwritten by CLI flags",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}

	// selection
	exportCmd.Flags().StringVarP(&flagBook, "book", "b", "", "book id, name or descriptor file")
	exportCmd.Flags().StringVar(&flagRange, "range", "", "export a range of pages by position (e.g. 5-12)")
	exportCmd.Flags().StringVar(&flagList, "list", "", "export specific pages by position (e.g. 1,3,5)")
	exportCmd.Flags().IntVar(&flagChapters, "chapters", 1, "number of chapters to export, following next-page links")

	// runtime
	exportCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for CBZ files")
	exportCmd.Flags().IntVar(&flagImageWorkers, "image-workers", 0, "parallel image downloads")
	exportCmd.Flags().BoolVar(&flagSkipBroken, "skip-broken", false, "skip failed images instead of failing the whole export")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	opts := baseOptions()
	opts.Output = flagOutput
	opts.ImageWorkers = flagImageWorkers
	opts.SkipBroken = flagSkipBroken

	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()

	if flagChapters < 1 {
		return errors.New("--chapters must be at least 1")
	}

	b, err := rt.resolveBook(flagBook)
	if err != nil {
		return err
	}

	target, err := rt.targetURL(b, args)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(rt.cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	ctx, cancel := util.InterruptContext(context.Background(), rt.cfg.Output, rt.log)
	defer cancel()

	pm := ui.NewProgressManager(os.Stdout)
	stats := &ui.Stats{}
	dl := downloader.New(rt.client, rt.cfg.Output, rt.cfg.SkipBroken)
	start := time.Now()

	var archives []string
	var exportErr error

	for i := 0; i < flagChapters && target != ""; i++ {
		content, err := rt.loader.Load(ctx, b, target)
		if err != nil {
			exportErr = err
			break
		}
		if !content.Extracted {
			exportErr = fmt.Errorf("%s: no reader config applies, nothing to export", target)
			break
		}

		pages, err := downloader.Select(content.Pages, flagRange, flagList)
		if err != nil {
			exportErr = err
			break
		}
		if len(pages) == 0 {
			rt.log.Warnf("%s: no image pages selected", target)
			target = content.Next
			continue
		}

		title := content.Title
		if title == "" {
			title = b.Name
		}

		handle := pm.Register(title)
		res, err := dl.Export(ctx, title, target, pages, rt.cfg.ImageWorkers, handle)
		handle.MarkDone()
		if err != nil {
			exportErr = fmt.Errorf("%s: %w", title, err)
			break
		}

		stats.Add(res.Pages, res.Failed, res.Bytes)
		archives = append(archives, res.Archive)
		target = content.Next
	}

	pm.Close()

	fmt.Println()
	fmt.Println("Export Summary:")
	for _, a := range archives {
		fmt.Printf("  %s\n", a)
	}
	fmt.Println(stats.Summary(time.Since(start)))

	return exportErr
}
