// Package pdf edits text in existing PDF pages without reflowing them.
//
// Text is located by interpreting each page's content stream with the
// fonts' encodings and metrics. Blanking removes the matched glyphs from
// the stream, replacing each with a kerning adjustment of equal advance,
// and paints the region white. Inserted text is drawn over the page with
// the standard Helvetica faces, or Symbol for characters such as arrows
// that WinAnsi cannot encode.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.LayoutEngine = (*Engine)(nil)

// Engine opens PDF templates.
type Engine struct{}

// NewEngine creates a PDF layout engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Name identifies the engine.
func (e *Engine) Name() string { return "pdf" }

// Open parses a private copy of the template.
func (e *Engine) Open(data []byte) (driven.LayoutDocument, error) {
	return Open(data)
}

// Line grouping thresholds, relative to the font size.
const (
	baselineTolerance = 0.3
	wordGap           = 0.15
	segmentGap        = 1.0
	blockLeading      = 1.6
	blockIndent       = 1.5 // points
)

// defaultInsertSize is used when a TextStyle carries no size.
const defaultInsertSize = 10.0

// Inserted font faces.
const (
	faceRegular = iota
	faceBold
	faceSymbol
)

var faces = [...]struct {
	resource name
	base     name
	encoding name
}{
	faceRegular: {"LMHelv", "Helvetica", "WinAnsiEncoding"},
	faceBold:    {"LMHelvB", "Helvetica-Bold", "WinAnsiEncoding"},
	faceSymbol:  {"LMSymb", "Symbol", ""},
}

type page struct {
	node   pageNode
	ops    []op
	glyphs []glyph
	fonts  map[name]*font

	// faceNames maps inserted faces to their resource names on this page.
	faceNames map[int]name
	overlay   bytes.Buffer
	dirty     bool
}

type region struct {
	page   int
	glyphs []int
}

// Document is an open PDF. It is not safe for concurrent use.
type Document struct {
	file      *file
	pages     []*page
	regions   map[int]region
	nextID    int
	faceRefs  map[int]ref
	fontCache map[int]*font
}

// Ensure Document implements the interface.
var _ driven.LayoutDocument = (*Document)(nil)

// Open parses a PDF document.
func Open(data []byte) (*Document, error) {
	f, err := parseFile(bytes.Clone(data))
	if err != nil {
		return nil, err
	}
	nodes, err := f.pages()
	if err != nil {
		return nil, err
	}

	d := &Document{
		file:      f,
		regions:   make(map[int]region),
		faceRefs:  make(map[int]ref),
		fontCache: make(map[int]*font),
	}
	for i, node := range nodes {
		content, err := d.content(node)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		ops, err := parseContent(content)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		p := &page{node: node, ops: ops, fonts: make(map[name]*font), faceNames: make(map[int]name)}
		p.glyphs = extractGlyphs(ops, func(n name) *font { return d.font(p, n) })
		d.pages = append(d.pages, p)
	}
	return d, nil
}

// content concatenates a page's content streams.
func (d *Document) content(node pageNode) ([]byte, error) {
	var parts []object
	switch v := d.file.resolve(node.dict["Contents"]).(type) {
	case *stream:
		parts = []object{v}
	case array:
		parts = v
	}

	var buf bytes.Buffer
	for _, part := range parts {
		s, ok := d.file.resolve(part).(*stream)
		if !ok {
			continue
		}
		data, err := decodeStream(s)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (d *Document) font(p *page, n name) *font {
	if ft, ok := p.fonts[n]; ok {
		return ft
	}
	fonts := d.file.dictOf(p.node.resources["Font"])
	entry := fonts[n]
	var ft *font
	if r, ok := entry.(ref); ok {
		if cached, ok := d.fontCache[r.num]; ok {
			ft = cached
		} else {
			ft = d.file.loadFont(d.file.dictOf(r))
			d.fontCache[r.num] = ft
		}
	} else {
		ft = d.file.loadFont(d.file.dictOf(entry))
	}
	p.fonts[n] = ft
	return ft
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Find returns every non-overlapping occurrence of text on a page.
// A match never spans two lines.
func (d *Document) Find(pageIndex int, text string) []domain.Region {
	if pageIndex < 0 || pageIndex >= len(d.pages) || text == "" {
		return nil
	}
	needle := []rune(text)

	var regions []domain.Region
	for _, ln := range d.lines(pageIndex) {
		runes, owners := ln.runes()
		for i := 0; i+len(needle) <= len(runes); {
			if !hasRunes(runes, needle, i) {
				i++
				continue
			}
			if glyphs := glyphsOf(owners[i : i+len(needle)]); len(glyphs) > 0 {
				regions = append(regions, d.region(pageIndex, glyphs))
			}
			i += len(needle)
		}
	}
	return regions
}

// FindBlock returns every paragraph whose normalised text equals text.
//
// A paragraph is a run of segments on consecutive lines that start at the
// same x. Segments on one line are separated by wide gaps or by two or
// more spaces.
func (d *Document) FindBlock(pageIndex int, text string) []domain.Region {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return nil
	}
	want := normalize(text)
	if want == "" {
		return nil
	}

	var regions []domain.Region
	for _, block := range d.blocks(pageIndex) {
		parts := make([]string, 0, len(block))
		var glyphs []int
		for _, seg := range block {
			parts = append(parts, seg.text())
			glyphs = append(glyphs, seg.glyphs()...)
		}
		if normalize(strings.Join(parts, " ")) == want {
			regions = append(regions, d.region(pageIndex, glyphs))
		}
	}
	return regions
}

// Blank removes a region's glyphs and paints its bounds white.
func (d *Document) Blank(r domain.Region) error {
	if r.Page < 0 || r.Page >= len(d.pages) {
		return fmt.Errorf("page %d out of range", r.Page)
	}
	reg, ok := d.regions[r.ID]
	if !ok || reg.page != r.Page {
		return fmt.Errorf("unknown region %d on page %d", r.ID, r.Page)
	}

	p := d.pages[r.Page]
	for _, gi := range reg.glyphs {
		p.glyphs[gi].removed = true
	}
	rect := d.bounds(p, reg.glyphs)
	fmt.Fprintf(&p.overlay, "q 1 1 1 rg %s %s %s %s re f Q\n",
		formatNumber(rect.X0), formatNumber(rect.Y0),
		formatNumber(rect.Width()), formatNumber(rect.Height()))
	p.dirty = true
	return nil
}

// InsertText draws a single line of text with its baseline at the point.
// Inserted text is not visible to Find.
func (d *Document) InsertText(pageIndex int, at domain.Point, text string, style domain.TextStyle) error {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return fmt.Errorf("page %d out of range", pageIndex)
	}
	if strings.ContainsAny(text, "\r\n\f") {
		return errors.New("inserted text must be a single line")
	}
	if text == "" {
		return nil
	}
	size := style.Size
	if size <= 0 {
		size = defaultInsertSize
	}
	textFace := faceRegular
	if style.Bold {
		textFace = faceBold
	}

	p := d.pages[pageIndex]
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "q 0 g BT %s %s Td", formatNumber(at.X), formatNumber(at.Y))
	for _, run := range encodeRuns(text, textFace) {
		buf.WriteByte(' ')
		writeName(&buf, d.faceName(p, run.face))
		fmt.Fprintf(&buf, " %s Tf ", formatNumber(size))
		writeString(&buf, run.data)
		buf.WriteString(" Tj")
	}
	buf.WriteString(" ET Q\n")

	p.overlay.Write(buf.Bytes())
	p.dirty = true
	return nil
}

// Text returns a page's remaining text, one line per output line.
func (d *Document) Text(pageIndex int) string {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return ""
	}
	var out []string
	for _, ln := range d.lines(pageIndex) {
		runes, _ := ln.runes()
		out = append(out, string(runes))
	}
	return strings.Join(out, "\n")
}

// Save writes the edited document. Unedited pages keep their content
// streams; the output for a given sequence of edits is always the same.
func (d *Document) Save(w io.Writer) error {
	out := &file{
		objects: make(map[int]object, len(d.file.objects)+len(d.pages)),
		trailer: d.file.trailer,
		maxNum:  d.file.maxNum,
	}
	for num, obj := range d.file.objects {
		out.objects[num] = obj
	}

	for _, p := range d.pages {
		if !p.dirty {
			continue
		}
		var content bytes.Buffer
		content.WriteString("q\n")
		for _, raw := range p.rewrittenOps() {
			content.Write(raw)
			content.WriteByte('\n')
		}
		content.WriteString("Q\n")
		content.Write(p.overlay.Bytes())

		contents := out.add(&stream{
			dict: dict{"Filter": name("FlateDecode")},
			data: deflate(content.Bytes()),
		})

		pageDict := make(dict, len(p.node.dict)+2)
		for k, v := range p.node.dict {
			pageDict[k] = v
		}
		pageDict["Contents"] = contents
		pageDict["Resources"] = d.resources(p)
		out.objects[p.node.num] = pageDict
	}
	return out.write(w)
}

// rewrittenOps returns each operation's bytes with removed glyphs dropped.
func (p *page) rewrittenOps() [][]byte {
	removed := make(map[int]map[removalKey]removal)
	for _, g := range p.glyphs {
		if !g.removed {
			continue
		}
		if removed[g.op] == nil {
			removed[g.op] = make(map[removalKey]removal)
		}
		removed[g.op][removalKey{g.elem, g.start}] = removal{n: g.end - g.start, adjust: g.adjust}
	}

	out := make([][]byte, len(p.ops))
	for i, o := range p.ops {
		if r, ok := removed[i]; ok {
			out[i] = rewriteShow(o, r)
			continue
		}
		out[i] = o.raw
	}
	return out
}

// resources copies the page resources and adds the inserted faces.
func (d *Document) resources(p *page) dict {
	res := make(dict, len(p.node.resources)+1)
	for k, v := range p.node.resources {
		res[k] = v
	}
	if len(p.faceNames) == 0 {
		return res
	}

	fonts := make(dict)
	for k, v := range d.file.dictOf(p.node.resources["Font"]) {
		fonts[k] = v
	}
	for face, n := range p.faceNames {
		fonts[n] = d.faceRef(face)
	}
	res["Font"] = fonts
	return res
}

// faceName returns the page's resource name for an inserted face,
// choosing one that does not collide with the page's own fonts.
func (d *Document) faceName(p *page, face int) name {
	if n, ok := p.faceNames[face]; ok {
		return n
	}
	existing := d.file.dictOf(p.node.resources["Font"])
	n := faces[face].resource
	for i := 2; existing[n] != nil; i++ {
		n = faces[face].resource + name(strconv.Itoa(i))
	}
	p.faceNames[face] = n
	d.faceRef(face)
	return n
}

func (d *Document) faceRef(face int) ref {
	if r, ok := d.faceRefs[face]; ok {
		return r
	}
	fd := dict{
		"Type":     name("Font"),
		"Subtype":  name("Type1"),
		"BaseFont": faces[face].base,
	}
	if enc := faces[face].encoding; enc != "" {
		fd["Encoding"] = enc
	}
	r := d.file.add(fd)
	d.faceRefs[face] = r
	return r
}

// region registers glyphs under a new ID.
func (d *Document) region(pageIndex int, glyphs []int) domain.Region {
	id := d.nextID
	d.nextID++
	d.regions[id] = region{page: pageIndex, glyphs: glyphs}

	p := d.pages[pageIndex]
	first := p.glyphs[glyphs[0]]
	return domain.Region{
		Page:     pageIndex,
		ID:       id,
		Rect:     d.bounds(p, glyphs),
		Baseline: first.baseline,
		FontSize: first.size,
	}
}

func (d *Document) bounds(p *page, glyphs []int) domain.Rect {
	var rect domain.Rect
	for i, gi := range glyphs {
		x0, y0, x1, y1 := p.glyphs[gi].rect()
		r := domain.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
		if i == 0 {
			rect = r
			continue
		}
		rect = rect.Union(r)
	}
	return rect
}

// ==================== Lines and paragraphs ====================

// entry is one visible character of a line. glyph is -1 for a space
// inferred from a gap.
type entry struct {
	text  string
	glyph int
}

type line struct {
	baseline float64
	size     float64
	entries  []entry
}

func (ln *line) runes() ([]rune, []int) {
	var runes []rune
	var owners []int
	for _, e := range ln.entries {
		for _, r := range e.text {
			runes = append(runes, r)
			owners = append(owners, e.glyph)
		}
	}
	return runes, owners
}

// lines groups a page's remaining glyphs by baseline, top to bottom.
func (d *Document) lines(pageIndex int) []*line {
	p := d.pages[pageIndex]

	var lines []*line
	var members [][]int
	for i := range p.glyphs {
		g := &p.glyphs[i]
		if g.removed || g.text == "" {
			continue
		}
		placed := false
		for li, ln := range lines {
			if abs(ln.baseline-g.baseline) <= baselineTolerance*max(ln.size, g.size, 1) {
				members[li] = append(members[li], i)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, &line{baseline: g.baseline, size: g.size})
			members = append(members, []int{i})
		}
	}

	for li, ln := range lines {
		idx := members[li]
		sort.SliceStable(idx, func(a, b int) bool { return p.glyphs[idx[a]].x0 < p.glyphs[idx[b]].x0 })

		var prev *glyph
		for _, gi := range idx {
			g := &p.glyphs[gi]
			if prev != nil && g.x0-prev.x1 > wordGap*max(g.size, 1) &&
				!strings.HasSuffix(prev.text, " ") && !strings.HasPrefix(g.text, " ") {
				ln.entries = append(ln.entries, entry{text: " ", glyph: -1})
			}
			ln.entries = append(ln.entries, entry{text: g.text, glyph: gi})
			ln.size = max(ln.size, g.size)
			prev = g
		}
	}

	sort.SliceStable(lines, func(a, b int) bool { return lines[a].baseline > lines[b].baseline })
	return lines
}

// segment is a run of a line's entries between wide gaps.
type segment struct {
	entries  []entry
	x0       float64
	baseline float64
	size     float64
}

func (s segment) text() string {
	var b strings.Builder
	for _, e := range s.entries {
		b.WriteString(e.text)
	}
	return strings.TrimSpace(b.String())
}

func (s segment) glyphs() []int {
	var out []int
	for _, e := range s.entries {
		if e.glyph >= 0 && strings.TrimSpace(e.text) != "" {
			out = append(out, e.glyph)
		}
	}
	return out
}

// segments splits a line at gaps wider than the font size or at runs of
// two or more spaces.
func (d *Document) segments(p *page, ln *line) []segment {
	var out []segment
	var cur []entry
	spaces := 0
	flush := func() {
		for len(cur) > 0 && strings.TrimSpace(cur[len(cur)-1].text) == "" {
			cur = cur[:len(cur)-1]
		}
		for len(cur) > 0 && strings.TrimSpace(cur[0].text) == "" {
			cur = cur[1:]
		}
		if len(cur) > 0 {
			first := p.glyphs[cur[0].glyph]
			out = append(out, segment{entries: cur, x0: first.x0, baseline: ln.baseline, size: ln.size})
		}
		cur = nil
		spaces = 0
	}

	var prev *glyph
	for _, e := range ln.entries {
		if strings.TrimSpace(e.text) == "" {
			spaces += utf8.RuneCountInString(e.text)
			if spaces >= 2 {
				flush()
				continue
			}
			cur = append(cur, e)
			continue
		}
		g := &p.glyphs[e.glyph]
		if prev != nil && g.x0-prev.x1 > segmentGap*max(g.size, 1) {
			flush()
		}
		spaces = 0
		cur = append(cur, e)
		prev = g
	}
	flush()
	return out
}

// blocks groups a page's segments into paragraphs.
func (d *Document) blocks(pageIndex int) [][]segment {
	p := d.pages[pageIndex]

	var blocks [][]segment
	var open []int // blocks ending on the previous line
	for _, ln := range d.lines(pageIndex) {
		var next []int
		for _, seg := range d.segments(p, ln) {
			joined := false
			for _, bi := range open {
				last := blocks[bi][len(blocks[bi])-1]
				gap := last.baseline - seg.baseline
				if abs(last.x0-seg.x0) <= blockIndent && gap > 0 && gap <= blockLeading*max(last.size, seg.size) {
					blocks[bi] = append(blocks[bi], seg)
					next = append(next, bi)
					joined = true
					break
				}
			}
			if !joined {
				blocks = append(blocks, []segment{seg})
				next = append(next, len(blocks)-1)
			}
		}
		open = next
	}
	return blocks
}

// ==================== Helpers ====================

type encodedRun struct {
	face int
	data []byte
}

// encodeRuns splits text into runs of one face. Characters neither face
// can encode become '?'.
func encodeRuns(text string, textFace int) []encodedRun {
	var runs []encodedRun
	for _, r := range text {
		face := textFace
		code, ok := encodeWinAnsi(r)
		if !ok {
			if sym, isSym := symbolCodes[r]; isSym {
				face, code = faceSymbol, sym
			} else {
				code = '?'
			}
		}
		if n := len(runs); n > 0 && runs[n-1].face == face {
			runs[n-1].data = append(runs[n-1].data, code)
			continue
		}
		runs = append(runs, encodedRun{face: face, data: []byte{code}})
	}
	return runs
}

// glyphsOf returns the distinct real glyphs among owners, in order.
func glyphsOf(owners []int) []int {
	var out []int
	for _, gi := range owners {
		if gi < 0 || (len(out) > 0 && out[len(out)-1] == gi) {
			continue
		}
		out = append(out, gi)
	}
	return out
}

func hasRunes(haystack, needle []rune, at int) bool {
	for i, r := range needle {
		if haystack[at+i] != r {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
