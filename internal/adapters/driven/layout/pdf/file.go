package pdf

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// Errors returned while opening a document.
var (
	ErrNotPDF            = errors.New("not a PDF document")
	ErrEncrypted         = errors.New("encrypted PDF documents are not supported")
	ErrUnsupportedFilter = errors.New("unsupported stream filter")
	ErrNoPages           = errors.New("document has no pages")
)

// maxResolveDepth bounds reference chains.
const maxResolveDepth = 32

var objHeader = regexp.MustCompile(`(\d+)[\x00\t\n\f\r ]+(\d+)[\x00\t\n\f\r ]+obj\b`)

// file is the object table of a parsed PDF. Objects are addressed by
// number; generations are ignored and later definitions win.
type file struct {
	objects map[int]object
	trailer dict
	maxNum  int
}

// definition tracks where an object was defined so later ones win.
type definition struct {
	obj object
	seq float64
}

func parseFile(data []byte) (*file, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\n\f\r "), []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	defs := make(map[int]definition)
	var objStreams []definition
	var xrefDicts []dict
	seq := 0.0

	pos := 0
	for pos < len(data) {
		m := objHeader.FindSubmatchIndex(data[pos:])
		if m == nil {
			break
		}
		num, _ := strconv.Atoi(string(data[pos+m[2] : pos+m[3]]))
		l := newLexer(data)
		l.pos = pos + m[1]

		obj, end, err := readIndirect(l)
		if err != nil {
			// Skip past a damaged header and keep scanning.
			pos += m[1]
			continue
		}
		pos = end
		seq++

		defs[num] = definition{obj: obj, seq: seq}
		if s, ok := obj.(*stream); ok {
			switch s.dict["Type"] {
			case name("ObjStm"):
				objStreams = append(objStreams, definition{obj: s, seq: seq})
			case name("XRef"):
				xrefDicts = append(xrefDicts, s.dict)
			}
		}
	}

	f := &file{objects: make(map[int]object, len(defs))}
	for num, d := range defs {
		f.objects[num] = d.obj
	}

	for _, objStm := range objStreams {
		contents, err := f.expandObjectStream(objStm.obj.(*stream))
		if err != nil {
			continue
		}
		for num, obj := range contents {
			if d, ok := defs[num]; ok && d.seq > objStm.seq {
				continue
			}
			defs[num] = definition{obj: obj, seq: objStm.seq + 0.5}
			f.objects[num] = obj
		}
	}

	for num := range f.objects {
		f.maxNum = max(f.maxNum, num)
	}

	f.trailer = findTrailer(data)
	if f.trailer["Root"] == nil {
		for i := len(xrefDicts) - 1; i >= 0; i-- {
			if xrefDicts[i]["Root"] != nil {
				f.trailer = xrefDicts[i]
				break
			}
		}
	}
	if f.trailer["Root"] == nil {
		f.trailer = dict{}
		if num, ok := f.findCatalog(); ok {
			f.trailer["Root"] = ref{num: num}
		}
	}
	if f.trailer["Encrypt"] != nil {
		return nil, ErrEncrypted
	}
	if f.trailer["Root"] == nil {
		return nil, fmt.Errorf("%w: no document catalog", ErrNotPDF)
	}
	return f, nil
}

// readIndirect reads "<object> [stream ... endstream] endobj" and returns
// the object and the offset just past it.
func readIndirect(l *lexer) (object, int, error) {
	obj, err := l.object()
	if err != nil {
		return nil, 0, err
	}

	d, isDict := obj.(dict)
	save := l.pos
	l.skipSpace()
	if isDict && bytes.HasPrefix(l.data[l.pos:], []byte("stream")) {
		start := l.pos + len("stream")
		if start < len(l.data) && l.data[start] == '\r' {
			start++
		}
		if start < len(l.data) && l.data[start] == '\n' {
			start++
		}
		data, end := streamData(l.data, start, d)
		l.pos = end
		obj = &stream{dict: d, data: data}
		save = l.pos
		l.skipSpace()
	}

	if bytes.HasPrefix(l.data[l.pos:], []byte("endobj")) {
		return obj, l.pos + len("endobj"), nil
	}
	return obj, save, nil
}

// streamData returns the stream bytes and the offset past "endstream".
// A direct /Length is trusted when "endstream" follows it; otherwise the
// data runs to the next "endstream".
func streamData(data []byte, start int, d dict) ([]byte, int) {
	if n, ok := d["Length"].(int); ok && n >= 0 && start+n <= len(data) {
		rest := bytes.TrimLeft(data[start+n:], "\x00\t\n\f\r ")
		if bytes.HasPrefix(rest, []byte("endstream")) {
			end := len(data) - len(rest) + len("endstream")
			return data[start : start+n], end
		}
	}

	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return data[start:], len(data)
	}
	raw := data[start : start+idx]
	switch {
	case bytes.HasSuffix(raw, []byte("\r\n")):
		raw = raw[:len(raw)-2]
	case bytes.HasSuffix(raw, []byte("\n")), bytes.HasSuffix(raw, []byte("\r")):
		raw = raw[:len(raw)-1]
	}
	return raw, start + idx + len("endstream")
}

func findTrailer(data []byte) dict {
	idx := bytes.LastIndex(data, []byte("trailer"))
	for idx >= 0 {
		l := newLexer(data)
		l.pos = idx + len("trailer")
		if obj, err := l.object(); err == nil {
			if d, ok := obj.(dict); ok && d["Root"] != nil {
				return d
			}
		}
		idx = bytes.LastIndex(data[:idx], []byte("trailer"))
	}
	return dict{}
}

func (f *file) findCatalog() (int, bool) {
	nums := f.numbers()
	for i := len(nums) - 1; i >= 0; i-- {
		if d, ok := f.objects[nums[i]].(dict); ok && d["Type"] == name("Catalog") {
			return nums[i], true
		}
	}
	return 0, false
}

func (f *file) expandObjectStream(s *stream) (map[int]object, error) {
	data, err := decodeStream(s)
	if err != nil {
		return nil, err
	}
	n, _ := integer(f.resolve(s.dict["N"]))
	first, _ := integer(f.resolve(s.dict["First"]))
	if n <= 0 || first <= 0 || first > len(data) {
		return nil, fmt.Errorf("bad object stream header")
	}

	header := newLexer(data[:first])
	out := make(map[int]object, n)
	for i := 0; i < n; i++ {
		numObj, err1 := header.object()
		offObj, err2 := header.object()
		if err1 != nil || err2 != nil {
			break
		}
		num, ok1 := numObj.(int)
		off, ok2 := offObj.(int)
		if !ok1 || !ok2 || first+off >= len(data) {
			continue
		}
		l := newLexer(data)
		l.pos = first + off
		obj, err := l.object()
		if err != nil {
			continue
		}
		out[num] = obj
	}
	return out, nil
}

// resolve follows references to a direct object.
func (f *file) resolve(o object) object {
	for i := 0; i < maxResolveDepth; i++ {
		r, ok := o.(ref)
		if !ok {
			return o
		}
		o = f.objects[r.num]
	}
	return nil
}

func (f *file) dictOf(o object) dict {
	switch v := f.resolve(o).(type) {
	case dict:
		return v
	case *stream:
		return v.dict
	}
	return nil
}

func (f *file) numbers() []int {
	nums := make([]int, 0, len(f.objects))
	for num := range f.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// add stores a new object and returns its reference.
func (f *file) add(o object) ref {
	f.maxNum++
	f.objects[f.maxNum] = o
	return ref{num: f.maxNum}
}

// pageNode is a leaf of the page tree with inherited attributes applied.
type pageNode struct {
	num       int
	dict      dict
	resources dict
}

func (f *file) pages() ([]pageNode, error) {
	root := f.dictOf(f.trailer["Root"])
	if root == nil {
		return nil, fmt.Errorf("%w: catalog is not a dictionary", ErrNotPDF)
	}
	tree, ok := root["Pages"].(ref)
	if !ok {
		return nil, ErrNoPages
	}

	var out []pageNode
	seen := make(map[int]bool)
	var walk func(r ref, inherited dict) error
	walk = func(r ref, inherited dict) error {
		if seen[r.num] {
			return fmt.Errorf("page tree cycle at object %d", r.num)
		}
		seen[r.num] = true

		node := f.dictOf(r)
		if node == nil {
			return nil
		}
		res := inherited
		if d := f.dictOf(node["Resources"]); d != nil {
			res = d
		}

		kids, isTree := f.resolve(node["Kids"]).(array)
		if node["Type"] == name("Pages") || (isTree && node["Type"] != name("Page")) {
			for _, kid := range kids {
				kr, ok := kid.(ref)
				if !ok {
					continue
				}
				if err := walk(kr, res); err != nil {
					return err
				}
			}
			return nil
		}
		if res == nil {
			res = dict{}
		}
		out = append(out, pageNode{num: r.num, dict: node, resources: res})
		return nil
	}
	if err := walk(tree, nil); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoPages
	}
	return out, nil
}

// ==================== Filters ====================

func decodeStream(s *stream) ([]byte, error) {
	var filters []name
	switch v := s.dict["Filter"].(type) {
	case name:
		filters = []name{v}
	case array:
		for _, e := range v {
			if n, ok := e.(name); ok {
				filters = append(filters, n)
			}
		}
	}

	data := s.data
	for _, filter := range filters {
		var err error
		switch filter {
		case "FlateDecode", "Fl":
			data, err = inflate(data)
		case "ASCIIHexDecode", "AHx":
			data, err = hexDecode(data)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filter)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filter, err)
		}
	}
	return data, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		// Some producers write raw deflate without the zlib header.
		return io.ReadAll(flate.NewReader(bytes.NewReader(data)))
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
		// Truncated or mis-checksummed streams still render in viewers.
		return out, nil
	}
	return out, err
}

func hexDecode(data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		data = data[:i]
	}
	l := newLexer(append(append([]byte{'<'}, data...), '>'))
	obj, err := l.readHex()
	if err != nil {
		return nil, err
	}
	return obj.(pdfString), nil
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

// ==================== Writing ====================

// write serialises every object with a classic cross-reference table.
// Object and cross-reference streams are dropped because their contents
// are written out as ordinary objects.
func (f *file) write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	size := f.maxNum + 1
	offsets := make([]int, size)
	for _, num := range f.numbers() {
		obj := f.objects[num]
		if s, ok := obj.(*stream); ok {
			if t := s.dict["Type"]; t == name("ObjStm") || t == name("XRef") {
				continue
			}
		}
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		writeIndirect(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < size; num++ {
		if offsets[num] == 0 {
			buf.WriteString("0000000000 00001 f \n")
			continue
		}
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}

	trailer := dict{"Size": size, "Root": f.trailer["Root"]}
	if info := f.trailer["Info"]; info != nil {
		trailer["Info"] = info
	}
	if id := f.trailer["ID"]; id != nil {
		trailer["ID"] = id
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xref)

	_, err := w.Write(buf.Bytes())
	return err
}

func writeIndirect(buf *bytes.Buffer, obj object) {
	s, ok := obj.(*stream)
	if !ok {
		writeObject(buf, obj)
		return
	}
	d := make(dict, len(s.dict))
	for k, v := range s.dict {
		d[k] = v
	}
	d["Length"] = len(s.data)
	writeObject(buf, d)
	buf.WriteString("\nstream\n")
	buf.Write(s.data)
	buf.WriteString("\nendstream")
}
