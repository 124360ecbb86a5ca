package domain

// Tokens with behaviour beyond a plain column lookup.
const (
	// TokenDate receives the run date.
	TokenDate = "[Date]"

	// TokenEmployeeType sits lower on its line than other tokens.
	TokenEmployeeType = "[Employee Type]"

	// TokenBonusAmount is the current-year bonus figure.
	TokenBonusAmount = "[Bonus in INR]"

	// TokenBonusIntro is the sentence that introduces the bonus lines.
	TokenBonusIntro = "[Bonus Intro]"

	// TokenBonusNumI and TokenBonusNumII number the bonus lines.
	TokenBonusNumI  = "[Bonus Num I]"
	TokenBonusNumII = "[Bonus Num II]"

	// TokenTargetArrow precedes the target bonus figure.
	TokenTargetArrow = "[Target Arrow]"

	// TokenTargetAmount is the target bonus figure.
	TokenTargetAmount = "[Target in INR]"

	// TokenDash and TokenDoubleDash precede the SDR and comments sections.
	TokenDash       = "[Dash]"
	TokenDoubleDash = "[Double Dash]"
)

// Fixed replacement texts.
const (
	ArrowGlyph    = "→"
	BonusNumI     = "I."
	BonusNumII    = "II."
	DateLayout    = "January 02, 2006"
	DocumentExt   = ".pdf"
	ArchivePrefix = "employee_documents_"
)

// FieldBinding connects one template token to one input column.
type FieldBinding struct {
	// Token is the literal placeholder, brackets included.
	Token string

	// Column is the header of the source column.
	Column string

	// Currency routes the value through the currency formatter.
	Currency bool
}

// SectionConfig names the optional columns and literal texts behind the
// conditional sections of the letter.
type SectionConfig struct {
	// SDRColumn holds the SDR-only note. Optional.
	SDRColumn string

	// CommentsColumn holds general comments. Optional.
	CommentsColumn string

	// BonusColumn holds the current-year bonus.
	BonusColumn string

	// TargetColumn holds the target bonus.
	TargetColumn string

	// SDRBlock is the exact template paragraph replaced by the SDR note.
	SDRBlock string

	// CommentsBlock is the exact template paragraph replaced by the comments.
	CommentsBlock string

	// BonusIntro is the sentence rendered for TokenBonusIntro when a bonus exists.
	BonusIntro string
}

// FieldMapping describes how an input table populates the template.
type FieldMapping struct {
	// Bindings are applied in order.
	Bindings []FieldBinding

	// IDColumn and NameColumn build the output filename.
	IDColumn   string
	NameColumn string

	// RecipientColumn holds the delivery address. Optional.
	RecipientColumn string

	// Sections configures the conditional layout.
	Sections SectionConfig
}

// RequiredColumns returns the columns that must exist in the input table,
// deduplicated and in binding order.
func (m FieldMapping) RequiredColumns() []string {
	seen := make(map[string]struct{}, len(m.Bindings)+2)
	cols := make([]string, 0, len(m.Bindings)+2)
	add := func(c string) {
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	for _, b := range m.Bindings {
		add(b.Column)
	}
	add(m.IDColumn)
	add(m.NameColumn)
	return cols
}

// Tokens returns every token the mapping can produce, including the
// section markers and the date.
func (m FieldMapping) Tokens() []string {
	tokens := []string{TokenDate}
	for _, b := range m.Bindings {
		tokens = append(tokens, b.Token)
	}
	return append(tokens,
		TokenBonusIntro, TokenBonusNumI, TokenBonusNumII,
		TokenTargetArrow, TokenDash, TokenDoubleDash,
	)
}

// DefaultFieldMapping returns the appraisal-letter mapping.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		Bindings: []FieldBinding{
			{Token: "[Employee ID]", Column: "Emp ID"},
			{Token: "[Name]", Column: "Name"},
			{Token: "[Employee Department]", Column: "Department"},
			{Token: "[Employee Title]", Column: "Employee Title"},
			{Token: TokenEmployeeType, Column: "Employee Type"},
			{Token: TokenBonusAmount, Column: "2024 Bonus", Currency: true},
			{Token: "[Basic in INR]", Column: "Basic Salary", Currency: true},
			{Token: "[HRA in INR]", Column: "HRA", Currency: true},
			{Token: "[Other Allowance in INR]", Column: "Other Allowences", Currency: true},
			{Token: "[Provident Fund in INR]", Column: "Provident Fund", Currency: true},
			{Token: "[Company Deposit in INR]", Column: "Company Deposit", Currency: true},
			{Token: "[Total Fixed in INR]", Column: "Total Fixed", Currency: true},
			{Token: TokenTargetAmount, Column: "Bonus 2025 (At Target)", Currency: true},
			{Token: "[Total CTC in INR]", Column: "Total CTC", Currency: true},
		},
		IDColumn:        "Emp ID",
		NameColumn:      "Name",
		RecipientColumn: "Email Id",
		Sections: SectionConfig{
			SDRColumn:      "SDR Only",
			CommentsColumn: "Comments",
			BonusColumn:    "2024 Bonus",
			TargetColumn:   "Bonus 2025 (At Target)",
			SDRBlock:       "SDR Only Note",
			CommentsBlock:  "Other Comments",
			BonusIntro:     "In recognition of your performance, you are eligible for the following:",
		},
	}
}
