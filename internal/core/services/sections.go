package services

import (
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// SectionResolver decides which conditional parts of the letter a record shows.
type SectionResolver struct {
	cfg domain.SectionConfig
}

// NewSectionResolver creates a resolver for the given section configuration.
func NewSectionResolver(cfg domain.SectionConfig) *SectionResolver {
	return &SectionResolver{cfg: cfg}
}

// Resolve computes the section flags and the marker, cascade and block
// replacements for one record.
//
// The SDR note takes precedence over comments for the blocks. The dash
// markers follow presence independently, so a record carrying both shows
// both arrows while only the SDR block is filled.
func (r *SectionResolver) Resolve(rec domain.Record) domain.SectionResolution {
	sdr := r.text(rec, r.cfg.SDRColumn)
	comments := r.text(rec, r.cfg.CommentsColumn)

	flags := domain.SectionFlags{
		Mode:              domain.SectionModeNone,
		Markers:           domain.SectionModeNone,
		BonusActive:       r.present(rec, r.cfg.BonusColumn),
		TargetBonusActive: r.present(rec, r.cfg.TargetColumn),
	}

	switch {
	case sdr != "":
		flags.Mode = domain.SectionModeSDR
	case comments != "":
		flags.Mode = domain.SectionModeComments
	}

	switch {
	case sdr != "" && comments != "":
		flags.Markers = domain.SectionModeBoth
	case sdr != "":
		flags.Markers = domain.SectionModeSDR
	case comments != "":
		flags.Markers = domain.SectionModeComments
	}

	res := domain.SectionResolution{Flags: flags}

	dash, doubleDash := flags.Markers.Arrows()
	res.Tokens = append(res.Tokens,
		domain.Replacement{Target: domain.TokenDash, Text: arrowIf(dash)},
		domain.Replacement{Target: domain.TokenDoubleDash, Text: arrowIf(doubleDash)},
	)

	if flags.BonusActive {
		res.Tokens = append(res.Tokens,
			domain.Replacement{Target: domain.TokenBonusIntro, Text: r.cfg.BonusIntro},
			domain.Replacement{Target: domain.TokenBonusNumI, Text: domain.BonusNumI},
			domain.Replacement{Target: domain.TokenBonusNumII, Text: domain.BonusNumII},
		)
	} else {
		res.Tokens = append(res.Tokens,
			domain.Replacement{Target: domain.TokenBonusAmount},
			domain.Replacement{Target: domain.TokenBonusIntro},
			domain.Replacement{Target: domain.TokenBonusNumI},
			domain.Replacement{Target: domain.TokenBonusNumII},
		)
	}

	if flags.TargetBonusActive {
		res.Tokens = append(res.Tokens,
			domain.Replacement{Target: domain.TokenTargetArrow, Text: domain.ArrowGlyph},
		)
	} else {
		res.Tokens = append(res.Tokens,
			domain.Replacement{Target: domain.TokenTargetArrow},
			domain.Replacement{Target: domain.TokenTargetAmount},
		)
	}

	if r.cfg.SDRBlock != "" {
		text := ""
		if flags.Mode == domain.SectionModeSDR {
			text = sdr
		}
		res.Blocks = append(res.Blocks, domain.Replacement{Target: r.cfg.SDRBlock, Text: text})
	}
	if r.cfg.CommentsBlock != "" {
		text := ""
		if flags.Mode == domain.SectionModeComments {
			text = comments
		}
		res.Blocks = append(res.Blocks, domain.Replacement{Target: r.cfg.CommentsBlock, Text: text})
	}

	return res
}

func (r *SectionResolver) text(rec domain.Record, column string) string {
	if column == "" {
		return ""
	}
	return rec.Text(column)
}

func (r *SectionResolver) present(rec domain.Record, column string) bool {
	return r.text(rec, column) != ""
}

func arrowIf(on bool) string {
	if on {
		return domain.ArrowGlyph
	}
	return ""
}
