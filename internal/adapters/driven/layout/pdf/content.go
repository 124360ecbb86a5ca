package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// op is one content-stream operation. raw holds its original bytes so
// untouched operations are written back unchanged.
type op struct {
	operands []object
	operator string
	raw      []byte
}

// parseContent splits a content stream into operations.
func parseContent(data []byte) ([]op, error) {
	l := newLexer(data)
	l.content = true

	var ops []op
	var operands []object
	start := -1
	for {
		l.skipSpace()
		if start < 0 {
			start = l.pos
		}
		obj, err := l.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("content at %d: %w", l.pos, err)
		}

		kw, isOp := obj.(keyword)
		if !isOp {
			if _, stray := obj.(closer); stray {
				continue
			}
			operands = append(operands, obj)
			continue
		}
		if kw == "BI" {
			if err := skipInlineImage(l); err != nil {
				return nil, err
			}
		}
		ops = append(ops, op{operands: operands, operator: string(kw), raw: data[start:l.pos]})
		operands = nil
		start = -1
	}
	return ops, nil
}

// skipInlineImage moves past "<dict pairs> ID <data> EI".
func skipInlineImage(l *lexer) error {
	for {
		obj, err := l.next()
		if err != nil {
			return fmt.Errorf("inline image: %w", err)
		}
		if obj == keyword("ID") {
			break
		}
	}
	l.pos++ // single whitespace after ID
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] == 'E' && l.data[i+1] == 'I' && isWhite(l.data[i-1]) &&
			(i+2 == len(l.data) || isWhite(l.data[i+2])) {
			l.pos = i + 2
			return nil
		}
	}
	return fmt.Errorf("inline image: %w", errUnexpectedEOF)
}

// ==================== Geometry ====================

// matrix is [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m followed by n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

func matrixOf(operands []object) (matrix, bool) {
	if len(operands) < 6 {
		return identity, false
	}
	var m matrix
	for i := 0; i < 6; i++ {
		v, ok := number(operands[len(operands)-6+i])
		if !ok {
			return identity, false
		}
		m[i] = v
	}
	return m, true
}

// ==================== Text extraction ====================

// Glyph box proportions relative to the font size.
const (
	ascent  = 0.8
	descent = 0.2
)

// glyph is one shown character code in user space.
type glyph struct {
	op    int
	elem  int // index in the TJ array, or -1 for a bare string operand
	start int // byte range within the string
	end   int

	text     string
	x0, x1   float64
	baseline float64
	size     float64

	// adjust is the TJ number that advances exactly as far as the glyph.
	adjust float64

	removed bool
}

func (g *glyph) rect() (x0, y0, x1, y1 float64) {
	return g.x0, g.baseline - descent*g.size, g.x1, g.baseline + ascent*g.size
}

type graphicsState struct {
	ctm     matrix
	font    *font
	size    float64
	charSp  float64
	wordSp  float64
	scale   float64
	leading float64
	rise    float64
}

// textExtractor runs the text operators of a content stream.
type textExtractor struct {
	fonts func(name) *font

	gs     graphicsState
	stack  []graphicsState
	tm     matrix
	tlm    matrix
	glyphs []glyph
}

func extractGlyphs(ops []op, fonts func(name) *font) []glyph {
	x := &textExtractor{
		fonts: fonts,
		gs:    graphicsState{ctm: identity, font: defaultFont, scale: 1},
		tm:    identity,
		tlm:   identity,
	}
	for i := range ops {
		x.run(i, ops[i])
	}
	return x.glyphs
}

func (x *textExtractor) run(i int, o op) {
	args := o.operands
	num := func(k int) float64 {
		if k < len(args) {
			v, _ := number(args[k])
			return v
		}
		return 0
	}

	switch o.operator {
	case "q":
		x.stack = append(x.stack, x.gs)
	case "Q":
		if n := len(x.stack); n > 0 {
			x.gs = x.stack[n-1]
			x.stack = x.stack[:n-1]
		}
	case "cm":
		if m, ok := matrixOf(args); ok {
			x.gs.ctm = m.mul(x.gs.ctm)
		}
	case "BT":
		x.tm, x.tlm = identity, identity
	case "Tf":
		if len(args) >= 2 {
			if n, ok := args[0].(name); ok {
				x.gs.font = x.fonts(n)
			}
			x.gs.size = num(1)
		}
	case "Tc":
		x.gs.charSp = num(0)
	case "Tw":
		x.gs.wordSp = num(0)
	case "Tz":
		x.gs.scale = num(0) / 100
	case "TL":
		x.gs.leading = num(0)
	case "Ts":
		x.gs.rise = num(0)
	case "Td":
		x.moveLine(num(0), num(1))
	case "TD":
		x.gs.leading = -num(1)
		x.moveLine(num(0), num(1))
	case "Tm":
		if m, ok := matrixOf(args); ok {
			x.tm, x.tlm = m, m
		}
	case "T*":
		x.moveLine(0, -x.gs.leading)
	case "Tj":
		if s, ok := lastString(args); ok {
			x.show(i, -1, s)
		}
	case "'":
		x.moveLine(0, -x.gs.leading)
		if s, ok := lastString(args); ok {
			x.show(i, -1, s)
		}
	case "\"":
		if len(args) >= 3 {
			x.gs.wordSp = num(0)
			x.gs.charSp = num(1)
		}
		x.moveLine(0, -x.gs.leading)
		if s, ok := lastString(args); ok {
			x.show(i, -1, s)
		}
	case "TJ":
		if len(args) == 0 {
			return
		}
		arr, _ := args[len(args)-1].(array)
		for k, e := range arr {
			switch v := e.(type) {
			case pdfString:
				x.show(i, k, v)
			case int, float64:
				n, _ := number(v)
				x.tm = translate(-n/1000*x.gs.size*x.gs.scale, 0).mul(x.tm)
			}
		}
	}
}

func lastString(args []object) (pdfString, bool) {
	if len(args) == 0 {
		return nil, false
	}
	s, ok := args[len(args)-1].(pdfString)
	return s, ok
}

func (x *textExtractor) moveLine(tx, ty float64) {
	x.tlm = translate(tx, ty).mul(x.tlm)
	x.tm = x.tlm
}

func (x *textExtractor) show(opIndex, elem int, s pdfString) {
	gs := x.gs
	offset := 0
	for _, code := range gs.font.decode(s) {
		trm := x.tm.mul(gs.ctm)
		ox, oy := trm.apply(0, gs.rise)
		sx := math.Hypot(trm[0], trm[1])
		sy := math.Hypot(trm[2], trm[3])

		wordSp := 0.0
		if code.space {
			wordSp = gs.wordSp
		}
		advance := (code.width/1000*gs.size + gs.charSp + wordSp) * gs.scale

		g := glyph{
			op:       opIndex,
			elem:     elem,
			start:    offset,
			end:      offset + code.n,
			text:     code.text,
			x0:       ox,
			x1:       ox + code.width/1000*gs.size*gs.scale*sx,
			baseline: oy,
			size:     gs.size * sy,
		}
		if gs.size != 0 {
			g.adjust = -(code.width + (gs.charSp+wordSp)*1000/gs.size)
		}
		x.glyphs = append(x.glyphs, g)

		x.tm = translate(advance, 0).mul(x.tm)
		offset += code.n
	}
}

// ==================== Rewriting ====================

// removal drops n bytes of a shown string in favour of a TJ adjustment.
type removal struct {
	n      int
	adjust float64
}

// removalKey addresses a code by TJ element and byte offset.
type removalKey struct{ elem, start int }

// rewriteShow rebuilds a text-showing operation without its removed
// glyphs. Each removed glyph becomes a TJ adjustment of equal advance,
// so the remaining glyphs keep their positions.
func rewriteShow(o op, removed map[removalKey]removal) []byte {
	var elems array
	var prefix bytes.Buffer

	switch o.operator {
	case "TJ":
		elems, _ = o.operands[len(o.operands)-1].(array)
	case "Tj", "'", "\"":
		s, _ := lastString(o.operands)
		elems = array{s}
		if o.operator == "'" {
			prefix.WriteString("T* ")
		}
		if o.operator == "\"" {
			if len(o.operands) >= 3 {
				writeObject(&prefix, o.operands[0])
				prefix.WriteString(" Tw ")
				writeObject(&prefix, o.operands[1])
				prefix.WriteString(" Tc ")
			}
			prefix.WriteString("T* ")
		}
	default:
		return o.raw
	}

	var out array
	pushNumber := func(n float64) {
		if k := len(out); k > 0 {
			if prev, ok := number(out[k-1]); ok {
				out[k-1] = prev + n
				return
			}
		}
		out = append(out, n)
	}

	for k, e := range elems {
		s, ok := e.(pdfString)
		if !ok {
			if n, isNum := number(e); isNum {
				pushNumber(n)
			}
			continue
		}
		elem := k
		if o.operator != "TJ" {
			elem = -1
		}
		var run []byte
		for i := 0; i < len(s); {
			if r, gone := removed[removalKey{elem, i}]; gone && r.n > 0 {
				if len(run) > 0 {
					out = append(out, pdfString(run))
					run = nil
				}
				pushNumber(r.adjust)
				i += r.n
				continue
			}
			run = append(run, s[i])
			i++
		}
		if len(run) > 0 {
			out = append(out, pdfString(run))
		}
	}

	var buf bytes.Buffer
	buf.Write(prefix.Bytes())
	writeObject(&buf, out)
	buf.WriteString(" TJ")
	return buf.Bytes()
}
