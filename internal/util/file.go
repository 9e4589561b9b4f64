package util

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
)

// CreateCBZ packs files into a CBZ archive at output, ordered naturally by
// name so page_2 comes before page_10.
func CreateCBZ(files []string, output string) (err error) {
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	z := zip.NewWriter(out)
	defer func() { err = multierr.Append(err, z.Close()) }()

	sorted := append([]string(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return natural.Less(filepath.Base(sorted[i]), filepath.Base(sorted[j]))
	})

	for _, file := range sorted {
		if err := addFileToZip(z, file); err != nil {
			return fmt.Errorf("cbz: %s: %w", file, err)
		}
	}

	return nil
}

func addFileToZip(z *zip.Writer, file string) (err error) {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(file)
	header.Method = zip.Store

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}
