package cdec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrTableMissing is returned when a report page has no table with id="data".
var ErrTableMissing = errors.New(`report table id="data" not found`)

// ParseReport extracts station rows from a PRECIPMON report page. The first
// table row holds the site's headers and is skipped, as are region banners,
// summary rows, and rows without a station id.
func ParseReport(r io.Reader) ([]domain.RawRainfallRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse report html: %w", err)
	}
	table := findTable(doc, "data")
	if table == nil {
		return nil, ErrTableMissing
	}

	var rows []domain.RawRainfallRow
	for i, tr := range collect(table, atom.Tr) {
		if i == 0 {
			continue
		}
		cells := rowCells(tr)
		if len(cells) < 3 {
			continue
		}
		id := cells[0]
		if id == "" || strings.Contains(id, "STATION") {
			continue
		}
		row := domain.RawRainfallRow{StationID: id, StationName: cells[1]}
		copy(row.Values[:], cells[2:])
		rows = append(rows, row)
	}
	return rows, nil
}

func findTable(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c, id); t != nil {
			return t
		}
	}
	return nil
}

// collect returns the descendants of n with the given tag, in document
// order, without descending into nested tables.
func collect(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == tag {
				out = append(out, c)
				continue
			}
			if c.DataAtom != atom.Table {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, text(c))
		}
	}
	return cells
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
