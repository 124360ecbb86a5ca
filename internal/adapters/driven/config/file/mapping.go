package file

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// mappingFile is the YAML shape of a field mapping.
// Omitted fields keep the built-in default.
type mappingFile struct {
	IDColumn        string          `yaml:"id_column"`
	NameColumn      string          `yaml:"name_column"`
	RecipientColumn *string         `yaml:"recipient_column"`
	Bindings        []bindingFile   `yaml:"bindings"`
	Sections        sectionFileSpec `yaml:"sections"`
}

type bindingFile struct {
	Token    string `yaml:"token"`
	Column   string `yaml:"column"`
	Currency bool   `yaml:"currency"`
}

type sectionFileSpec struct {
	SDRColumn      string `yaml:"sdr_column"`
	CommentsColumn string `yaml:"comments_column"`
	BonusColumn    string `yaml:"bonus_column"`
	TargetColumn   string `yaml:"target_column"`
	SDRBlock       string `yaml:"sdr_block"`
	CommentsBlock  string `yaml:"comments_block"`
	BonusIntro     string `yaml:"bonus_intro"`
}

// ParseMapping decodes a YAML field mapping over the default mapping.
func ParseMapping(data []byte) (domain.FieldMapping, error) {
	m := domain.DefaultFieldMapping()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	var raw mappingFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return domain.FieldMapping{}, fmt.Errorf("mapping: decode: %w", err)
	}

	if len(raw.Bindings) > 0 {
		m.Bindings = make([]domain.FieldBinding, 0, len(raw.Bindings))
		seen := make(map[string]struct{}, len(raw.Bindings))
		for i, b := range raw.Bindings {
			if b.Token == "" || b.Column == "" {
				return domain.FieldMapping{}, fmt.Errorf("mapping: binding %d needs token and column: %w", i, domain.ErrInvalidInput)
			}
			if _, dup := seen[b.Token]; dup {
				return domain.FieldMapping{}, fmt.Errorf("mapping: token %s bound twice: %w", b.Token, domain.ErrInvalidInput)
			}
			seen[b.Token] = struct{}{}
			m.Bindings = append(m.Bindings, domain.FieldBinding{Token: b.Token, Column: b.Column, Currency: b.Currency})
		}
	}

	override(&m.IDColumn, raw.IDColumn)
	override(&m.NameColumn, raw.NameColumn)
	if raw.RecipientColumn != nil {
		m.RecipientColumn = *raw.RecipientColumn
	}

	sec := &m.Sections
	override(&sec.SDRColumn, raw.Sections.SDRColumn)
	override(&sec.CommentsColumn, raw.Sections.CommentsColumn)
	override(&sec.BonusColumn, raw.Sections.BonusColumn)
	override(&sec.TargetColumn, raw.Sections.TargetColumn)
	override(&sec.SDRBlock, raw.Sections.SDRBlock)
	override(&sec.CommentsBlock, raw.Sections.CommentsBlock)
	override(&sec.BonusIntro, raw.Sections.BonusIntro)

	return m, nil
}

// LoadMapping reads a YAML field mapping. An empty path returns the default.
func LoadMapping(path string) (domain.FieldMapping, error) {
	if path == "" {
		return domain.DefaultFieldMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("mapping: read %s: %w", path, err)
	}
	m, err := ParseMapping(data)
	if err != nil {
		return domain.FieldMapping{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// MarshalMapping renders a mapping as YAML, for `lettermerge settings show --mapping`.
func MarshalMapping(m domain.FieldMapping) ([]byte, error) {
	recipient := m.RecipientColumn
	raw := mappingFile{
		IDColumn:        m.IDColumn,
		NameColumn:      m.NameColumn,
		RecipientColumn: &recipient,
		Sections: sectionFileSpec{
			SDRColumn:      m.Sections.SDRColumn,
			CommentsColumn: m.Sections.CommentsColumn,
			BonusColumn:    m.Sections.BonusColumn,
			TargetColumn:   m.Sections.TargetColumn,
			SDRBlock:       m.Sections.SDRBlock,
			CommentsBlock:  m.Sections.CommentsBlock,
			BonusIntro:     m.Sections.BonusIntro,
		},
	}
	for _, b := range m.Bindings {
		raw.Bindings = append(raw.Bindings, bindingFile{Token: b.Token, Column: b.Column, Currency: b.Currency})
	}
	return yaml.Marshal(raw)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MappingLoader implements driven.MappingLoader over YAML files.
type MappingLoader struct{}

// NewMappingLoader creates a mapping loader.
func NewMappingLoader() *MappingLoader {
	return &MappingLoader{}
}

// Load reads the mapping at path.
func (MappingLoader) Load(path string) (domain.FieldMapping, error) {
	return LoadMapping(path)
}
