package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// PDF object model. Integers and reals decode to int and float64,
// booleans to bool and null to nil.
type (
	object    any
	name      string
	pdfString []byte
	array     []object
	dict      map[name]object
	keyword   string
	ref       struct{ num, gen int }
)

// stream keeps its data encoded exactly as read.
type stream struct {
	dict dict
	data []byte
}

var errUnexpectedEOF = errors.New("unexpected end of data")

func isWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhite(c) && !isDelim(c)
}

// lexer reads objects from PDF syntax. In content mode "N G R" is not
// read as a reference.
type lexer struct {
	data    []byte
	pos     int
	content bool
}

func newLexer(data []byte) *lexer {
	return &lexer{data: data}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.data)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// closer marks the end of an array or dictionary.
type closer byte

// next reads one object, or a closer for ']' and '>>'.
func (l *lexer) next() (object, error) {
	l.skipSpace()
	if l.eof() {
		return nil, io.EOF
	}

	c := l.data[l.pos]
	switch {
	case c == '/':
		return l.readName(), nil
	case c == '(':
		return l.readLiteral()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return l.readDict()
		}
		return l.readHex()
	case c == '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return closer('>'), nil
		}
		return nil, fmt.Errorf("unexpected '>' at %d", l.pos)
	case c == '[':
		l.pos++
		return l.readArray()
	case c == ']':
		l.pos++
		return closer(']'), nil
	case c == '{' || c == '}':
		l.pos++
		return keyword(l.data[l.pos-1 : l.pos]), nil
	case c == ')':
		return nil, fmt.Errorf("unexpected ')' at %d", l.pos)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumberOrRef()
	default:
		return l.readKeyword(), nil
	}
}

// object reads one complete object and rejects stray closers.
func (l *lexer) object() (object, error) {
	obj, err := l.next()
	if err != nil {
		return nil, err
	}
	if _, ok := obj.(closer); ok {
		return nil, fmt.Errorf("unexpected closer at %d", l.pos)
	}
	return obj, nil
}

func (l *lexer) readName() name {
	l.pos++ // '/'
	var buf bytes.Buffer
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		c := l.data[l.pos]
		if c == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				buf.WriteByte(byte(v))
				l.pos += 3
				continue
			}
		}
		buf.WriteByte(c)
		l.pos++
	}
	return name(buf.String())
}

func (l *lexer) readLiteral() (object, error) {
	l.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return pdfString(buf.Bytes()), nil
			}
			buf.WriteByte(c)
		case '\r':
			// EOL in a literal string reads as a single newline.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		case '\\':
			if l.pos >= len(l.data) {
				return nil, errUnexpectedEOF
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
		default:
			buf.WriteByte(c)
		}
	}
	return nil, errUnexpectedEOF
}

func (l *lexer) readHex() (object, error) {
	l.pos++ // '<'
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return pdfString(out), nil
		}
		if isWhite(c) {
			continue
		}
		digits = append(digits, c)
	}
	return nil, errUnexpectedEOF
}

func (l *lexer) readArray() (object, error) {
	arr := array{}
	for {
		obj, err := l.next()
		if err != nil {
			if err == io.EOF {
				return nil, errUnexpectedEOF
			}
			return nil, err
		}
		if c, ok := obj.(closer); ok {
			if c != ']' {
				return nil, fmt.Errorf("unbalanced array at %d", l.pos)
			}
			return arr, nil
		}
		arr = append(arr, obj)
	}
}

func (l *lexer) readDict() (object, error) {
	d := dict{}
	for {
		key, err := l.next()
		if err != nil {
			if err == io.EOF {
				return nil, errUnexpectedEOF
			}
			return nil, err
		}
		if c, ok := key.(closer); ok {
			if c != '>' {
				return nil, fmt.Errorf("unbalanced dictionary at %d", l.pos)
			}
			return d, nil
		}
		k, ok := key.(name)
		if !ok {
			return nil, fmt.Errorf("dictionary key is %T at %d", key, l.pos)
		}
		val, err := l.next()
		if err != nil {
			if err == io.EOF {
				return nil, errUnexpectedEOF
			}
			return nil, err
		}
		if c, ok := val.(closer); ok && c == '>' {
			// Odd entry count; drop the key.
			return d, nil
		}
		d[k] = val
	}
}

func (l *lexer) readToken() string {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) readKeyword() object {
	tok := l.readToken()
	if tok == "" {
		// Unknown delimiter: consume it so the caller advances.
		l.pos++
		return keyword(l.data[l.pos-1 : l.pos])
	}
	switch tok {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return keyword(tok)
}

func parseNumber(tok string) (object, bool) {
	if i, err := strconv.Atoi(tok); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, true
	}
	// Lenient forms such as "--5" or "5." followed by junk.
	if len(tok) > 1 && (tok[0] == '-' || tok[0] == '+') {
		if f, err := strconv.ParseFloat(tok[1:], 64); err == nil {
			if tok[0] == '-' {
				return -f, true
			}
			return f, true
		}
	}
	return nil, false
}

func (l *lexer) readNumberOrRef() (object, error) {
	tok := l.readToken()
	num, ok := parseNumber(tok)
	if !ok {
		return keyword(tok), nil
	}
	n, isInt := num.(int)
	if !isInt || l.content || n < 0 {
		return num, nil
	}

	// Look ahead for "G R".
	save := l.pos
	l.skipSpace()
	genStart := l.pos
	for l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '9' {
		l.pos++
	}
	if l.pos > genStart && l.pos < len(l.data) && isWhite(l.data[l.pos]) {
		gen, _ := strconv.Atoi(string(l.data[genStart:l.pos]))
		l.skipSpace()
		if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
			(l.pos+1 == len(l.data) || !isRegular(l.data[l.pos+1])) {
			l.pos++
			return ref{num: n, gen: gen}, nil
		}
	}
	l.pos = save
	return num, nil
}

// ==================== Helpers ====================

func number(o object) (float64, bool) {
	switch v := o.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func integer(o object) (int, bool) {
	switch v := o.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// ==================== Serialisation ====================

func writeObject(buf *bytes.Buffer, o object) {
	switch v := o.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case float64:
		buf.WriteString(formatNumber(v))
	case name:
		writeName(buf, v)
	case pdfString:
		writeString(buf, v)
	case array:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, e)
		}
		buf.WriteByte(']')
	case dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		buf.WriteString("<<")
		for _, k := range keys {
			writeName(buf, name(k))
			buf.WriteByte(' ')
			writeObject(buf, v[name(k)])
		}
		buf.WriteString(">>")
	case ref:
		fmt.Fprintf(buf, "%d %d R", v.num, v.gen)
	case keyword:
		buf.WriteString(string(v))
	case closer:
		if v == ']' {
			buf.WriteByte(']')
		} else {
			buf.WriteString(">>")
		}
	default:
		buf.WriteString("null")
	}
}

func writeName(buf *bytes.Buffer, n name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < 0x21 || c > 0x7e || c == '#' || isDelim(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeString(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(buf, "\\%03o", c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}

func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
