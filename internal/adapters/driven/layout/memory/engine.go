// Package memory provides a fixed-grid layout engine over plain text.
//
// A ".layout" template is UTF-8 text. Every rune occupies one cell of a
// monospaced grid; pages are separated by a form feed. Find and Blank work
// on grid cells and inserted text is overlaid onto the grid when the
// document is saved, so nothing ever reflows.
package memory

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.LayoutEngine = (*Engine)(nil)

// Grid geometry in points.
const (
	CellWidth  = 6.0
	LineHeight = 12.0
	PageHeight = 792.0

	// baselineRise is the distance from a cell's bottom edge to its baseline.
	baselineRise = 3.0
)

// pageBreak separates pages in a template.
const pageBreak = "\f"

// Engine opens ".layout" templates.
type Engine struct {
	mu     sync.Mutex
	keep   bool
	opened []*Document
}

// NewEngine creates a memory layout engine.
func NewEngine() *Engine {
	return &Engine{}
}

// NewRecordingEngine creates an engine that remembers every document it opens.
func NewRecordingEngine() *Engine {
	return &Engine{keep: true}
}

// Name identifies the engine.
func (e *Engine) Name() string { return "layout" }

// Open parses a private copy of the template.
func (e *Engine) Open(data []byte) (driven.LayoutDocument, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if e.keep {
		e.mu.Lock()
		e.opened = append(e.opened, doc)
		e.mu.Unlock()
	}
	return doc, nil
}

// Opened returns the documents opened so far by a recording engine.
func (e *Engine) Opened() []*Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Document(nil), e.opened...)
}

// Insertion is one InsertText call.
type Insertion struct {
	Page  int
	At    domain.Point
	Text  string
	Style domain.TextStyle
}

type span struct {
	row, from, to int // [from, to) in cells
}

// Document is an open grid document. It is not safe for concurrent use.
type Document struct {
	pages   [][][]rune
	spans   map[int][]span
	nextID  int
	inserts []Insertion
}

// Ensure Document implements the interface.
var _ driven.LayoutDocument = (*Document)(nil)

// Parse reads a ".layout" template.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty layout template")
	}
	if !utf8.Valid(data) {
		return nil, errors.New("layout template is not valid UTF-8")
	}

	doc := &Document{spans: make(map[int][]span)}
	for i, page := range strings.Split(string(data), pageBreak) {
		if i > 0 {
			page = strings.TrimPrefix(page, "\n")
		}
		page = strings.TrimSuffix(page, "\n")
		var rows [][]rune
		for _, line := range strings.Split(page, "\n") {
			rows = append(rows, []rune(strings.TrimRight(line, "\r")))
		}
		doc.pages = append(doc.pages, rows)
	}
	return doc, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Find returns every non-overlapping occurrence of text on a page.
func (d *Document) Find(page int, text string) []domain.Region {
	if page < 0 || page >= len(d.pages) || text == "" {
		return nil
	}
	needle := []rune(text)

	var regions []domain.Region
	for row, line := range d.pages[page] {
		for col := 0; col+len(needle) <= len(line); {
			if !hasAt(line, needle, col) {
				col++
				continue
			}
			regions = append(regions, d.region(page, []span{{row, col, col + len(needle)}}))
			col += len(needle)
		}
	}
	return regions
}

// FindBlock returns every paragraph whose normalised text equals text.
//
// A paragraph is a run of segments on consecutive rows that start at the
// same column. Segments on one row are separated by two or more spaces.
func (d *Document) FindBlock(page int, text string) []domain.Region {
	if page < 0 || page >= len(d.pages) {
		return nil
	}
	want := normalize(text)
	if want == "" {
		return nil
	}

	var regions []domain.Region
	for _, block := range d.blocks(page) {
		var parts []string
		for _, s := range block {
			parts = append(parts, string(d.pages[page][s.row][s.from:s.to]))
		}
		if normalize(strings.Join(parts, " ")) == want {
			regions = append(regions, d.region(page, block))
		}
	}
	return regions
}

// Blank clears the cells of a region.
func (d *Document) Blank(region domain.Region) error {
	if region.Page < 0 || region.Page >= len(d.pages) {
		return fmt.Errorf("page %d out of range", region.Page)
	}
	spans, ok := d.spans[region.ID]
	if !ok {
		return fmt.Errorf("unknown region %d", region.ID)
	}
	rows := d.pages[region.Page]
	for _, s := range spans {
		for c := s.from; c < s.to && c < len(rows[s.row]); c++ {
			rows[s.row][c] = ' '
		}
	}
	return nil
}

// InsertText records text to overlay on save. It is not visible to Find.
func (d *Document) InsertText(page int, at domain.Point, text string, style domain.TextStyle) error {
	if page < 0 || page >= len(d.pages) {
		return fmt.Errorf("page %d out of range", page)
	}
	if strings.ContainsAny(text, "\n\f") {
		return errors.New("inserted text must be a single line")
	}
	d.inserts = append(d.inserts, Insertion{Page: page, At: at, Text: text, Style: style})
	return nil
}

// Insertions returns the recorded InsertText calls in order.
func (d *Document) Insertions() []Insertion {
	return append([]Insertion(nil), d.inserts...)
}

// Text returns the grid text of a page without insertions.
func (d *Document) Text(page int) string {
	var lines []string
	for _, row := range d.pages[page] {
		lines = append(lines, strings.TrimRight(string(row), " "))
	}
	return strings.Join(lines, "\n")
}

// region registers spans under a new ID and returns their bounds.
func (d *Document) region(page int, spans []span) domain.Region {
	id := d.nextID
	d.nextID++
	d.spans[id] = spans

	var rect domain.Rect
	for i, s := range spans {
		r := cellRect(s.row, s.from, s.to)
		if i == 0 {
			rect = r
			continue
		}
		rect = rect.Union(r)
	}
	return domain.Region{
		Page:     page,
		ID:       id,
		Rect:     rect,
		Baseline: rowBottom(spans[0].row) + baselineRise,
		FontSize: LineHeight - 2,
	}
}

// blocks groups the page's segments into paragraphs.
func (d *Document) blocks(page int) [][]span {
	var (
		blocks [][]span
		open   = map[int]int{} // start column -> index of block ending on the previous row
	)
	for row, line := range d.pages[page] {
		next := map[int]int{}
		for _, seg := range segments(line) {
			seg.row = row
			if i, ok := open[seg.from]; ok {
				blocks[i] = append(blocks[i], seg)
				next[seg.from] = i
				continue
			}
			blocks = append(blocks, []span{seg})
			next[seg.from] = len(blocks) - 1
		}
		open = next
	}
	return blocks
}

// segments splits a row at runs of two or more spaces.
func segments(line []rune) []span {
	var out []span
	start, gap := -1, 0
	for c, r := range line {
		if r == ' ' || r == '\t' {
			gap++
			if start >= 0 && gap == 2 {
				out = append(out, span{from: start, to: c - 1})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = c
		}
		gap = 0
	}
	if start >= 0 {
		end := len(line)
		for end > start && (line[end-1] == ' ' || line[end-1] == '\t') {
			end--
		}
		out = append(out, span{from: start, to: end})
	}
	return out
}

// Save overlays insertions onto a copy of the grid and writes the pages.
// The output for a given sequence of edits is always the same.
func (d *Document) Save(w io.Writer) error {
	pages := make([][][]rune, len(d.pages))
	for p, rows := range d.pages {
		pages[p] = make([][]rune, len(rows))
		for r, row := range rows {
			pages[p][r] = append([]rune(nil), row...)
		}
	}

	for _, ins := range d.inserts {
		row := int(math.Floor((PageHeight - ins.At.Y) / LineHeight))
		col := int(math.Round(ins.At.X / CellWidth))
		if row < 0 || col < 0 {
			return fmt.Errorf("insertion %q at (%.1f, %.1f) is off the page", ins.Text, ins.At.X, ins.At.Y)
		}
		rows := pages[ins.Page]
		for len(rows) <= row {
			rows = append(rows, nil)
		}
		line := rows[row]
		for i, r := range []rune(ins.Text) {
			for len(line) <= col+i {
				line = append(line, ' ')
			}
			line[col+i] = r
		}
		rows[row] = line
		pages[ins.Page] = rows
	}

	var b strings.Builder
	for p, rows := range pages {
		if p > 0 {
			b.WriteString(pageBreak + "\n")
		}
		for _, row := range rows {
			b.WriteString(strings.TrimRight(string(row), " "))
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Bottom edge of a row in user space.
func rowBottom(row int) float64 {
	return PageHeight - float64(row+1)*LineHeight
}

func cellRect(row, from, to int) domain.Rect {
	y0 := rowBottom(row)
	return domain.Rect{
		X0: float64(from) * CellWidth,
		Y0: y0,
		X1: float64(to) * CellWidth,
		Y1: y0 + LineHeight,
	}
}

func hasAt(line, needle []rune, col int) bool {
	for i, r := range needle {
		if line[col+i] != r {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
