package domain

// SectionMode selects which free-text section of the letter is shown.
type SectionMode string

// Available section modes.
const (
	// SectionModeSDR shows the SDR-only note.
	SectionModeSDR SectionMode = "sdr"

	// SectionModeComments shows the general comments.
	SectionModeComments SectionMode = "comments"

	// SectionModeBoth is reachable only through the marker pair.
	SectionModeBoth SectionMode = "both"

	// SectionModeNone shows neither section.
	SectionModeNone SectionMode = "none"
)

// IsValid returns true if the section mode is recognised.
func (m SectionMode) IsValid() bool {
	switch m {
	case SectionModeSDR, SectionModeComments, SectionModeBoth, SectionModeNone:
		return true
	default:
		return false
	}
}

// Arrows reports whether the dash and double-dash markers show an arrow.
func (m SectionMode) Arrows() (dash, doubleDash bool) {
	switch m {
	case SectionModeSDR:
		return true, false
	case SectionModeComments:
		return false, true
	case SectionModeBoth:
		return true, true
	default:
		return false, false
	}
}

// String returns the string representation.
func (m SectionMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SectionMode) Description() string {
	switch m {
	case SectionModeSDR:
		return "SDR note only"
	case SectionModeComments:
		return "Comments only"
	case SectionModeBoth:
		return "SDR note and comments"
	case SectionModeNone:
		return "No free-text section"
	default:
		return unknownDescription
	}
}

// SectionFlags records which optional parts of the letter are active for a record.
type SectionFlags struct {
	// Mode drives the block replacements. Never SectionModeBoth.
	Mode SectionMode

	// Markers drives the dash pair and may be SectionModeBoth.
	Markers SectionMode

	// BonusActive is false when the current-year bonus is blank.
	BonusActive bool

	// TargetBonusActive is false when the target bonus is blank.
	TargetBonusActive bool
}

// SectionResolution is the outcome of resolving a record's conditional sections.
type SectionResolution struct {
	Flags SectionFlags

	// Tokens are marker and cascade replacements, merged after field bindings.
	Tokens []Replacement

	// Blocks are exact-paragraph replacements.
	Blocks []Replacement
}
