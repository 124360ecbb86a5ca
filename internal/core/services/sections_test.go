package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

func record(values map[string]string) domain.Record {
	return domain.Record{Values: values}
}

func replacementMap(rs []domain.Replacement) map[string]string {
	m := make(map[string]string, len(rs))
	for _, r := range rs {
		m[r.Target] = r.Text
	}
	return m
}

func TestSectionResolver_Modes(t *testing.T) {
	tests := []struct {
		name       string
		sdr        string
		comments   string
		mode       domain.SectionMode
		markers    domain.SectionMode
		dash       string
		doubleDash string
		sdrBlock   string
		comBlock   string
	}{
		{"neither", "", "", domain.SectionModeNone, domain.SectionModeNone, "", "", "", ""},
		{"sentinels only", "nan", " N/A ", domain.SectionModeNone, domain.SectionModeNone, "", "", "", ""},
		{"sdr only", "  Quota reset ", "", domain.SectionModeSDR, domain.SectionModeSDR, "→", "", "Quota reset", ""},
		{"comments only", "na", "Great year", domain.SectionModeComments, domain.SectionModeComments, "", "→", "", "Great year"},
		{"both present", "Quota reset", "Great year", domain.SectionModeSDR, domain.SectionModeBoth, "→", "→", "Quota reset", ""},
	}

	resolver := NewSectionResolver(domain.DefaultFieldMapping().Sections)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolver.Resolve(record(map[string]string{
				"SDR Only": tt.sdr,
				"Comments": tt.comments,
			}))

			assert.Equal(t, tt.mode, res.Flags.Mode)
			assert.Equal(t, tt.markers, res.Flags.Markers)

			tokens := replacementMap(res.Tokens)
			assert.Equal(t, tt.dash, tokens[domain.TokenDash])
			assert.Equal(t, tt.doubleDash, tokens[domain.TokenDoubleDash])

			blocks := replacementMap(res.Blocks)
			require.Len(t, blocks, 2)
			assert.Equal(t, tt.sdrBlock, blocks["SDR Only Note"])
			assert.Equal(t, tt.comBlock, blocks["Other Comments"])
		})
	}
}

func TestSectionResolver_MissingOptionalColumns(t *testing.T) {
	resolver := NewSectionResolver(domain.DefaultFieldMapping().Sections)

	res := resolver.Resolve(record(map[string]string{"Name": "Asha"}))

	assert.Equal(t, domain.SectionModeNone, res.Flags.Mode)
	assert.False(t, res.Flags.BonusActive)
	assert.False(t, res.Flags.TargetBonusActive)
}

func TestSectionResolver_BonusCascade(t *testing.T) {
	cfg := domain.DefaultFieldMapping().Sections
	resolver := NewSectionResolver(cfg)

	active := resolver.Resolve(record(map[string]string{"2024 Bonus": "50000"}))
	tokens := replacementMap(active.Tokens)
	assert.True(t, active.Flags.BonusActive)
	assert.Equal(t, cfg.BonusIntro, tokens[domain.TokenBonusIntro])
	assert.Equal(t, "I.", tokens[domain.TokenBonusNumI])
	assert.Equal(t, "II.", tokens[domain.TokenBonusNumII])
	_, cleared := tokens[domain.TokenBonusAmount]
	assert.False(t, cleared, "an active bonus keeps the bound amount")

	inactive := resolver.Resolve(record(map[string]string{"2024 Bonus": "nan"}))
	tokens = replacementMap(inactive.Tokens)
	assert.False(t, inactive.Flags.BonusActive)
	for _, tok := range []string{domain.TokenBonusAmount, domain.TokenBonusIntro, domain.TokenBonusNumI, domain.TokenBonusNumII} {
		text, ok := tokens[tok]
		assert.True(t, ok, tok)
		assert.Empty(t, text, tok)
	}
}

func TestSectionResolver_TargetCascade(t *testing.T) {
	resolver := NewSectionResolver(domain.DefaultFieldMapping().Sections)

	active := resolver.Resolve(record(map[string]string{"Bonus 2025 (At Target)": "120000"}))
	tokens := replacementMap(active.Tokens)
	assert.True(t, active.Flags.TargetBonusActive)
	assert.Equal(t, "→", tokens[domain.TokenTargetArrow])

	inactive := resolver.Resolve(record(map[string]string{"Bonus 2025 (At Target)": ""}))
	tokens = replacementMap(inactive.Tokens)
	assert.False(t, inactive.Flags.TargetBonusActive)
	assert.Equal(t, "", tokens[domain.TokenTargetArrow])
	text, ok := tokens[domain.TokenTargetAmount]
	assert.True(t, ok)
	assert.Empty(t, text)
}

func TestSectionResolver_NoBlockLiterals(t *testing.T) {
	cfg := domain.DefaultFieldMapping().Sections
	cfg.SDRBlock = ""
	cfg.CommentsBlock = ""

	res := NewSectionResolver(cfg).Resolve(record(map[string]string{"SDR Only": "x"}))

	assert.Empty(t, res.Blocks)
	assert.Equal(t, domain.SectionModeSDR, res.Flags.Mode)
}
