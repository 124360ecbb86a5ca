package pdf

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// glyphCode is one character code read from a shown string.
type glyphCode struct {
	// n is the number of bytes the code occupies.
	n int

	text string

	// width is the advance in glyph space (thousandths of the font size).
	width float64

	// space is true for the single-byte code 32, which receives word spacing.
	space bool
}

// font decodes shown strings into codes, text and advances.
type font struct {
	composite bool
	codeLen   int
	encoding  *[256]rune
	toUnicode map[int]string
	widths    map[int]float64
	fallback  func(code int) float64
}

// defaultFont is used when text is shown before any Tf.
var defaultFont = &font{codeLen: 1, encoding: &winAnsi, fallback: helveticaWidth}

func (f *font) decode(s []byte) []glyphCode {
	codes := make([]glyphCode, 0, len(s))
	for i := 0; i < len(s); {
		n := f.codeLen
		if i+n > len(s) {
			n = len(s) - i
		}
		code := 0
		for _, b := range s[i : i+n] {
			code = code<<8 | int(b)
		}
		codes = append(codes, glyphCode{
			n:     n,
			text:  f.text(code),
			width: f.width(code),
			space: !f.composite && n == 1 && code == ' ',
		})
		i += n
	}
	return codes
}

func (f *font) text(code int) string {
	if t, ok := f.toUnicode[code]; ok {
		return t
	}
	if f.composite || code > 255 {
		return "�"
	}
	if r := f.encoding[code]; r != 0 {
		return string(r)
	}
	return ""
}

func (f *font) width(code int) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	return f.fallback(code)
}

// loadFont builds a decoder from a font dictionary.
func (f *file) loadFont(d dict) *font {
	if d == nil {
		return defaultFont
	}
	base, _ := f.resolve(d["BaseFont"]).(name)
	base = stripSubset(base)

	ft := &font{codeLen: 1, widths: make(map[int]float64)}
	if f.resolve(d["Subtype"]) == name("Type0") {
		ft.composite = true
		ft.codeLen = 2
		ft.loadCIDWidths(f, d)
	} else {
		ft.encoding = f.simpleEncoding(d, base)
		first, _ := integer(f.resolve(d["FirstChar"]))
		if ws, ok := f.resolve(d["Widths"]).(array); ok {
			for i, w := range ws {
				if v, ok := number(f.resolve(w)); ok {
					ft.widths[first+i] = v
				}
			}
		}
		missing := 0.0
		if fd := f.dictOf(d["FontDescriptor"]); fd != nil {
			missing, _ = number(f.resolve(fd["MissingWidth"]))
		}
		switch {
		case len(ft.widths) > 0 && missing > 0:
			ft.fallback = func(int) float64 { return missing }
		case len(ft.widths) > 0:
			ft.fallback = func(int) float64 { return 0 }
		default:
			ft.fallback = standardWidths(string(base))
		}
	}

	if s, ok := f.resolve(d["ToUnicode"]).(*stream); ok {
		if data, err := decodeStream(s); err == nil {
			cmap, codeLen := parseCMap(data)
			ft.toUnicode = cmap
			if codeLen > 0 {
				ft.codeLen = codeLen
			}
		}
	}
	return ft
}

// loadCIDWidths reads /DW and /W from the descendant font.
func (f *font) loadCIDWidths(pf *file, d dict) {
	f.fallback = func(int) float64 { return 1000 }
	descendants, _ := pf.resolve(d["DescendantFonts"]).(array)
	if len(descendants) == 0 {
		return
	}
	cid := pf.dictOf(descendants[0])
	if cid == nil {
		return
	}
	if dw, ok := number(pf.resolve(cid["DW"])); ok {
		f.fallback = func(int) float64 { return dw }
	}

	w, _ := pf.resolve(cid["W"]).(array)
	for i := 0; i < len(w); {
		first, ok := integer(pf.resolve(w[i]))
		if !ok || i+1 >= len(w) {
			break
		}
		if list, ok := pf.resolve(w[i+1]).(array); ok {
			for j, v := range list {
				if n, ok := number(pf.resolve(v)); ok {
					f.widths[first+j] = n
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, _ := integer(pf.resolve(w[i+1]))
		n, _ := number(pf.resolve(w[i+2]))
		for c := first; c <= last && c-first < 0x10000; c++ {
			f.widths[c] = n
		}
		i += 3
	}
}

func (f *file) simpleEncoding(d dict, base name) *[256]rune {
	enc := &winAnsi
	if base == "Symbol" {
		enc = &symbol
	}

	var diffs array
	switch v := f.resolve(d["Encoding"]).(type) {
	case name:
		enc = namedEncoding(v, enc)
	case dict:
		if b, ok := f.resolve(v["BaseEncoding"]).(name); ok {
			enc = namedEncoding(b, enc)
		}
		diffs, _ = f.resolve(v["Differences"]).(array)
	}
	if len(diffs) == 0 {
		return enc
	}

	custom := *enc
	code := 0
	for _, e := range diffs {
		switch v := f.resolve(e).(type) {
		case int:
			code = v
		case name:
			if code >= 0 && code < 256 {
				if r := glyphRune(string(v)); r != 0 {
					custom[code] = r
				}
			}
			code++
		}
	}
	return &custom
}

func namedEncoding(n name, fallback *[256]rune) *[256]rune {
	switch n {
	case "WinAnsiEncoding", "MacRomanEncoding":
		return &winAnsi
	case "StandardEncoding":
		return &standard
	}
	return fallback
}

// stripSubset removes a "ABCDEF+" subset prefix.
func stripSubset(n name) name {
	s := string(n)
	if len(s) > 7 && s[6] == '+' && strings.ToUpper(s[:6]) == s[:6] {
		return name(s[7:])
	}
	return n
}

// ==================== ToUnicode ====================

// parseCMap reads bfchar and bfrange mappings. It also returns the code
// length declared by the first codespace range, or 0.
func parseCMap(data []byte) (map[int]string, int) {
	l := newLexer(data)
	l.content = true
	out := make(map[int]string)
	codeLen := 0

	for {
		obj, err := l.next()
		if err != nil {
			break
		}
		kw, ok := obj.(keyword)
		if !ok {
			continue
		}
		switch kw {
		case "begincodespacerange":
			lo, err := l.next()
			if err != nil {
				return out, codeLen
			}
			if s, ok := lo.(pdfString); ok && codeLen == 0 {
				codeLen = len(s)
			}
		case "beginbfchar":
			for {
				src, err := l.next()
				if err != nil || src == keyword("endbfchar") {
					break
				}
				dst, err := l.next()
				if err != nil {
					break
				}
				s, ok1 := src.(pdfString)
				t, ok2 := dst.(pdfString)
				if ok1 && ok2 {
					out[codeOf(s)] = utf16Text(t)
				}
			}
		case "beginbfrange":
			for {
				lo, err := l.next()
				if err != nil || lo == keyword("endbfrange") {
					break
				}
				hi, err1 := l.next()
				dst, err2 := l.next()
				if err1 != nil || err2 != nil {
					break
				}
				ls, ok1 := lo.(pdfString)
				hs, ok2 := hi.(pdfString)
				if !ok1 || !ok2 {
					continue
				}
				start, end := codeOf(ls), codeOf(hs)
				if end < start || end-start > 0xFFFF {
					continue
				}
				switch v := dst.(type) {
				case pdfString:
					base := []rune(utf16Text(v))
					if len(base) == 0 {
						continue
					}
					for c := start; c <= end; c++ {
						r := append([]rune(nil), base...)
						r[len(r)-1] += rune(c - start)
						out[c] = string(r)
					}
				case array:
					for i, e := range v {
						if s, ok := e.(pdfString); ok && start+i <= end {
							out[start+i] = utf16Text(s)
						}
					}
				}
			}
		}
	}
	return out, codeLen
}

func codeOf(s []byte) int {
	code := 0
	for _, b := range s {
		code = code<<8 | int(b)
	}
	return code
}

func utf16Text(s []byte) string {
	units := make([]uint16, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		units = append(units, uint16(s[i])<<8|uint16(s[i+1]))
	}
	if len(s)%2 == 1 {
		units = append(units, uint16(s[len(s)-1]))
	}
	return string(utf16.Decode(units))
}

// ==================== Glyph names ====================

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+', "comma": ',',
	"hyphen": '-', "period": '.', "slash": '/', "zero": '0', "one": '1', "two": '2',
	"three": '3', "four": '4', "five": '5', "six": '6', "seven": '7', "eight": '8',
	"nine": '9', "colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"quoteleft": '‘', "braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"bullet": '•', "endash": '–', "emdash": '—', "quotedblleft": '“', "quotedblright": '”',
	"ellipsis": '…', "Euro": '€', "arrowright": '→', "arrowleft": '←', "arrowup": '↑',
	"arrowdown": '↓', "nbspace": ' ', "fi": 'ﬁ', "fl": 'ﬂ', "copyright": '©',
	"registered": '®', "trademark": '™', "degree": '°',
}

func glyphRune(n string) rune {
	if len(n) == 1 {
		return rune(n[0])
	}
	if r, ok := glyphNames[n]; ok {
		return r
	}
	for _, prefix := range []string{"uni", "u"} {
		if strings.HasPrefix(n, prefix) && len(n) >= len(prefix)+4 {
			if v, err := strconv.ParseUint(n[len(prefix):len(prefix)+4], 16, 32); err == nil {
				return rune(v)
			}
		}
	}
	return 0
}
