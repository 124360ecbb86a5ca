package domain

// Rect is an axis-aligned box in page user space.
// The origin is the bottom-left corner of the page and Y grows upward.
type Rect struct {
	X0, Y0 float64 // bottom-left
	X1, Y1 float64 // top-right
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rect containing both.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Point is a position in page user space.
type Point struct {
	X, Y float64
}

// TextStyle describes inserted text.
type TextStyle struct {
	// Size is the font size in points.
	Size float64

	// Bold selects the emphasised face.
	Bold bool
}

// Region is one located occurrence of text on a page.
type Region struct {
	// Page is zero-based.
	Page int

	// ID is an engine-specific handle; callers pass it back unchanged.
	ID int

	// Rect bounds the glyphs.
	Rect Rect

	// Baseline is the Y coordinate of the first line's baseline.
	Baseline float64

	// FontSize is the size of the located glyphs.
	FontSize float64
}

// TokenStyle overrides placement for one token.
type TokenStyle struct {
	// Offset is added to the region bottom to get the insertion baseline.
	Offset float64

	// Bold renders the replacement emphasised.
	Bold bool
}

// RenderOptions controls how replacement text is placed.
type RenderOptions struct {
	// FontSize is the size of inserted text.
	FontSize float64

	// DefaultOffset is the baseline offset for tokens without a TokenStyle.
	DefaultOffset float64

	// Tokens holds per-token overrides.
	Tokens map[string]TokenStyle
}

// StyleFor returns the placement for a token.
func (o RenderOptions) StyleFor(token string) TokenStyle {
	if s, ok := o.Tokens[token]; ok {
		return s
	}
	return TokenStyle{Offset: o.DefaultOffset}
}

// DefaultRenderOptions returns the placement used for the appraisal letter.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		FontSize:      10,
		DefaultOffset: 4,
		Tokens: map[string]TokenStyle{
			TokenEmployeeType: {Offset: 2},
			TokenBonusNumI:    {Offset: 5, Bold: true},
			TokenBonusNumII:   {Offset: 5, Bold: true},
		},
	}
}
