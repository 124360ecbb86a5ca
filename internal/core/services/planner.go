package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// unsafeFilenameChars matches everything but letters, digits, underscore,
// whitespace and hyphen.
var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Planner builds one SubstitutionPlan per record.
type Planner struct {
	mapping  domain.FieldMapping
	resolver *SectionResolver
}

// NewPlanner creates a planner for a field mapping.
func NewPlanner(mapping domain.FieldMapping) *Planner {
	return &Planner{
		mapping:  mapping,
		resolver: NewSectionResolver(mapping.Sections),
	}
}

// Mapping returns the field mapping the planner was built with.
func (p *Planner) Mapping() domain.FieldMapping {
	return p.mapping
}

// ValidateColumns checks that every bound column is in the header row.
// Returns a *domain.ValidationError listing the missing columns.
func (p *Planner) ValidateColumns(columns []string) error {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}

	var missing []string
	for _, c := range p.mapping.RequiredColumns() {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Missing: missing}
	}
	return nil
}

// Plan builds the plan for one record.
//
// Field bindings are applied first; section markers, cascades and blocks
// are merged afterwards and win on collision.
func (p *Planner) Plan(rec domain.Record, now time.Time) (*domain.SubstitutionPlan, error) {
	id := SanitizeFilename(rec.Text(p.mapping.IDColumn))
	name := SanitizeFilename(rec.Text(p.mapping.NameColumn))
	if id == "" && name == "" {
		return nil, fmt.Errorf("record %d has neither %q nor %q: %w",
			rec.Index, p.mapping.IDColumn, p.mapping.NameColumn, domain.ErrInvalidInput)
	}

	plan := &domain.SubstitutionPlan{
		Record:      rec.Index,
		EmployeeID:  rec.Text(p.mapping.IDColumn),
		Filename:    id + "_" + name + domain.DocumentExt,
		DisplayName: rec.Text(p.mapping.NameColumn),
	}
	if p.mapping.RecipientColumn != "" {
		plan.Recipient = rec.Text(p.mapping.RecipientColumn)
	}

	plan.SetField(domain.TokenDate, now.Format(domain.DateLayout))

	for _, b := range p.mapping.Bindings {
		if b.Currency {
			raw, _ := rec.Value(b.Column)
			plan.SetField(b.Token, FormatCurrency(raw))
			continue
		}
		plan.SetField(b.Token, rec.Text(b.Column))
	}

	res := p.resolver.Resolve(rec)
	plan.Flags = res.Flags
	for _, r := range res.Tokens {
		plan.SetField(r.Target, r.Text)
	}
	for _, r := range res.Blocks {
		plan.SetBlock(r.Target, r.Text)
	}

	return plan, nil
}

// PlanTable validates the table and plans every record in input order.
// Duplicate filenames are disambiguated with _2, _3, ... in input order.
func (p *Planner) PlanTable(table *domain.Table, now time.Time) ([]*domain.SubstitutionPlan, error) {
	if table == nil {
		return nil, fmt.Errorf("no input table: %w", domain.ErrInvalidInput)
	}
	if err := p.ValidateColumns(table.Columns); err != nil {
		return nil, err
	}

	plans := make([]*domain.SubstitutionPlan, 0, len(table.Records))
	for _, rec := range table.Records {
		plan, err := p.Plan(rec, now)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	DisambiguateFilenames(plans)
	return plans, nil
}

// SanitizeFilename keeps letters, digits, underscores, whitespace and
// hyphens, trims the result and replaces spaces with underscores.
func SanitizeFilename(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// DisambiguateFilenames renames later duplicates in place.
func DisambiguateFilenames(plans []*domain.SubstitutionPlan) {
	used := make(map[string]struct{}, len(plans))
	for _, plan := range plans {
		name := plan.Filename
		if _, taken := used[name]; taken {
			base := strings.TrimSuffix(plan.Filename, domain.DocumentExt)
			for n := 2; ; n++ {
				name = base + "_" + strconv.Itoa(n) + domain.DocumentExt
				if _, taken := used[name]; !taken {
					break
				}
			}
			plan.Filename = name
		}
		used[name] = struct{}{}
	}
}
