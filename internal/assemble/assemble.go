// Package assemble implements the downloader sinks: pages land as
// image files in a temporary folder and are stitched into a single
// output document (PDF by default, CBZ as an alternative).
package assemble

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// pageDir collects page images on disk in accept order.
type pageDir struct {
	dir   string
	files []string
}

func newPageDir(dir string) (*pageDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &pageDir{dir: dir}, nil
}

// write stores one page, picking the extension from the sniffed
// content type. The portal serves PNG today but has served JPEG
// re-encodes in the past.
func (d *pageDir) write(number int, data []byte) error {
	ext := ".png"
	if http.DetectContentType(data) == "image/jpeg" {
		ext = ".jpg"
	}

	path := filepath.Join(d.dir, fmt.Sprintf("page_%02d%s", number, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	d.files = append(d.files, path)
	return nil
}

func (d *pageDir) cleanup(keep bool) {
	if !keep {
		_ = os.RemoveAll(d.dir)
	}
}
