package assemble

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brogergvhs/aktudl/internal/downloader"
)

// CBZ archives accepted pages into a comic-book zip, for readers who
// want the raw page images instead of a PDF.
type CBZ struct {
	pages *pageDir
	out   string
	keep  bool
}

func NewCBZ(dir, out string, keep bool) (*CBZ, error) {
	pd, err := newPageDir(dir)
	if err != nil {
		return nil, err
	}
	return &CBZ{pages: pd, out: out, keep: keep}, nil
}

func (c *CBZ) Accept(page downloader.Page) error {
	return c.pages.write(page.Number, page.Data)
}

func (c *CBZ) Finalize(string) (string, error) {
	out, err := os.Create(c.out)
	if err != nil {
		return "", fmt.Errorf("cbz: %w", err)
	}

	z := zip.NewWriter(out)

	// Accept order is page order; no re-sort.
	for _, file := range c.pages.files {
		if err := addFileToZip(z, file); err != nil {
			_ = z.Close()
			_ = out.Close()
			return "", fmt.Errorf("cbz: %w", err)
		}
	}

	if err := z.Close(); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("cbz: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("cbz: %w", err)
	}

	c.pages.cleanup(c.keep)
	return c.out, nil
}

func addFileToZip(z *zip.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}
