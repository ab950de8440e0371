// Package marks extracts the question-wise marks breakdown that the
// portal renders next to the script viewer. The table is optional:
// its absence never blocks a download.
package marks

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
)

const panelID = "ctl00_Ajaxmastercontentplaceholder_WebPanel1"

// Record is one extracted breakdown: an ordered header row and the
// matching value row.
type Record struct {
	Header []string
	Values []string
}

// Extract scans a subject-selection response for the marks panel.
// The header row is recognized by its "Q.Num" cell, the value row by
// its "Main Valuation" cell. Returns ok=false when either is absent.
func Extract(body string) (Record, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Record{}, false
	}

	panel := doc.Find("table#" + panelID)
	if panel.Length() == 0 {
		return Record{}, false
	}

	var rec Record
	panel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}

		joined := strings.Join(cells, "")
		switch {
		case strings.Contains(joined, "Q.Num"):
			rec.Header = cells
		case strings.Contains(joined, "Main Valuation"):
			rec.Values = cells
		}
	})

	if len(rec.Header) == 0 || len(rec.Values) == 0 {
		return Record{}, false
	}
	return rec, true
}

// Table renders the record for the terminal.
func (r Record) Table() string {
	w := table.NewWriter()

	header := make(table.Row, 0, len(r.Header))
	for _, h := range r.Header {
		header = append(header, h)
	}
	values := make(table.Row, 0, len(r.Values))
	for _, v := range r.Values {
		values = append(values, v)
	}

	w.AppendHeader(header)
	w.AppendRow(values)
	w.SetStyle(table.StyleLight)

	return w.Render()
}
