package assemble

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/brogergvhs/aktudl/internal/downloader"
	"github.com/brogergvhs/aktudl/internal/marks"
)

// PDF assembles accepted pages into a single PDF, one page image per
// sheet, with the marks breakdown drawn as a summary first page when
// available.
type PDF struct {
	pages *pageDir
	out   string
	marks *marks.Record
	keep  bool
}

// NewPDF stages pages under dir and writes the final document to out.
// rec may be nil. When keep is true the staging folder survives
// Finalize.
func NewPDF(dir, out string, rec *marks.Record, keep bool) (*PDF, error) {
	pd, err := newPageDir(dir)
	if err != nil {
		return nil, err
	}
	return &PDF{pages: pd, out: out, marks: rec, keep: keep}, nil
}

func (p *PDF) Accept(page downloader.Page) error {
	return p.pages.write(page.Number, page.Data)
}

func (p *PDF) Finalize(code string) (string, error) {
	doc := fpdf.New("P", "mm", "A4", "")

	if p.marks != nil {
		p.addMarksPage(doc, code)
	}

	for _, file := range p.pages.files {
		doc.AddPage()
		doc.ImageOptions(file, 10, 10, 190, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	if doc.Err() {
		return "", fmt.Errorf("pdf %s: %w", p.out, doc.Error())
	}
	if err := doc.OutputFileAndClose(p.out); err != nil {
		return "", fmt.Errorf("pdf %s: %w", p.out, err)
	}

	p.pages.cleanup(p.keep)
	return p.out, nil
}

func (p *PDF) addMarksPage(doc *fpdf.Fpdf, code string) {
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 10, "Marks Breakdown - "+code, "", 1, "C", false, 0, "")
	doc.Ln(4)

	cols := len(p.marks.Header)
	if cols == 0 {
		return
	}
	colW := 190.0 / float64(cols)

	doc.SetFillColor(255, 165, 0)
	doc.SetFont("Helvetica", "B", 9)
	for _, h := range p.marks.Header {
		doc.CellFormat(colW, 8, h, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 9)
	for i, v := range p.marks.Values {
		if i >= cols {
			break
		}
		doc.CellFormat(colW, 8, v, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
}
