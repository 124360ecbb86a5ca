package pdf

import "strings"

// winAnsi maps WinAnsiEncoding codes to runes. Codes 0xA0-0xFF follow
// Latin-1; the 0x80-0x9F block holds the Windows-1252 additions.
var winAnsi = func() [256]rune {
	var t [256]rune
	for c := 0x20; c < 0x7f; c++ {
		t[c] = rune(c)
	}
	for c := 0xa0; c <= 0xff; c++ {
		t[c] = rune(c)
	}
	for code, r := range cp1252 {
		t[code] = r
	}
	return t
}()

var cp1252 = map[int]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„', 0x85: '…', 0x86: '†', 0x87: '‡',
	0x88: 'ˆ', 0x89: '‰', 0x8a: 'Š', 0x8b: '‹', 0x8c: 'Œ', 0x8e: 'Ž', 0x91: '‘',
	0x92: '’', 0x93: '“', 0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—', 0x98: '˜',
	0x99: '™', 0x9a: 'š', 0x9b: '›', 0x9c: 'œ', 0x9e: 'ž', 0x9f: 'Ÿ',
}

// standard is StandardEncoding for the printable ASCII range.
var standard = func() [256]rune {
	t := winAnsi
	t['\''] = '’'
	t['`'] = '‘'
	return t
}()

// symbolCodes are the Symbol font codes used for inserted text.
var symbolCodes = map[rune]byte{
	'→': 0xae, '←': 0xac, '↑': 0xad, '↓': 0xaf, '↔': 0xab,
	'•': 0xb7, '×': 0xb4, '÷': 0xb8, '≤': 0xa3, '≥': 0xb3,
	'≠': 0xb9, '∞': 0xa5, '°': 0xb0, '±': 0xb1,
}

// symbol decodes the Symbol font's built-in encoding for ASCII and the
// codes in symbolCodes.
var symbol = func() [256]rune {
	var t [256]rune
	for c := 0x20; c < 0x7f; c++ {
		t[c] = rune(c)
	}
	for r, code := range symbolCodes {
		t[code] = r
	}
	return t
}()

// encodeWinAnsi maps a rune to its WinAnsi code.
func encodeWinAnsi(r rune) (byte, bool) {
	if r >= 0x20 && r < 0x7f || r >= 0xa0 && r <= 0xff {
		return byte(r), true
	}
	for code, cr := range cp1252 {
		if cr == r {
			return byte(code), true
		}
	}
	return 0, false
}

// ==================== Standard font widths ====================

// Advance widths for the printable ASCII range of the standard fonts,
// used when a font dictionary carries no /Widths.
var (
	helvetica = [95]float64{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	}
	helveticaBold = [95]float64{
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	}
)

func helveticaWidth(code int) float64 {
	if code >= 0x20 && code < 0x7f {
		return helvetica[code-0x20]
	}
	return 556
}

func helveticaBoldWidth(code int) float64 {
	if code >= 0x20 && code < 0x7f {
		return helveticaBold[code-0x20]
	}
	return 556
}

// standardWidths picks metrics for a base font name. Fonts other than
// Courier and bold sans faces use Helvetica metrics.
func standardWidths(base string) func(int) float64 {
	switch {
	case strings.Contains(base, "Courier"):
		return func(int) float64 { return 600 }
	case base == "Symbol":
		return func(int) float64 { return 600 }
	case strings.Contains(base, "Bold"):
		return helveticaBoldWidth
	default:
		return helveticaWidth
	}
}
