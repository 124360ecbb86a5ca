package domain

// Replacement pairs a search text with the text that replaces it.
type Replacement struct {
	// Target is a token for field swaps or a full paragraph for block swaps.
	Target string

	// Text is the replacement; "" blanks the target.
	Text string
}

// SubstitutionPlan is everything the renderer needs for one record.
// Each target resolves to exactly one text: setting it again overwrites.
type SubstitutionPlan struct {
	// Record is the index of the source row.
	Record int

	// EmployeeID is the trimmed identifier cell.
	EmployeeID string

	// Fields are token replacements in application order.
	Fields []Replacement

	// Blocks are exact-paragraph replacements, applied after Fields.
	Blocks []Replacement

	// Flags records the resolved sections.
	Flags SectionFlags

	// Filename is the archive entry name, extension included.
	Filename string

	// Recipient is the delivery address, or "" when the record has none.
	Recipient string

	// DisplayName is the name used in the delivery greeting.
	DisplayName string
}

// SetField sets the replacement for a token, keeping its original position
// when the token is already planned.
func (p *SubstitutionPlan) SetField(token, text string) {
	p.Fields = set(p.Fields, token, text)
}

// SetBlock sets the replacement for an exact paragraph.
func (p *SubstitutionPlan) SetBlock(block, text string) {
	p.Blocks = set(p.Blocks, block, text)
}

// Field returns the planned text for a token.
func (p *SubstitutionPlan) Field(token string) (string, bool) {
	return lookup(p.Fields, token)
}

// Block returns the planned text for a paragraph.
func (p *SubstitutionPlan) Block(block string) (string, bool) {
	return lookup(p.Blocks, block)
}

func set(rs []Replacement, target, text string) []Replacement {
	for i := range rs {
		if rs[i].Target == target {
			rs[i].Text = text
			return rs
		}
	}
	return append(rs, Replacement{Target: target, Text: text})
}

func lookup(rs []Replacement, target string) (string, bool) {
	for _, r := range rs {
		if r.Target == target {
			return r.Text, true
		}
	}
	return "", false
}

// RenderedDocument is the output for one record.
type RenderedDocument struct {
	Record      int
	Filename    string
	Data        []byte
	Recipient   string
	DisplayName string
}
