package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// accountTypePatterns map an account type to the sheet names it covers.
var accountTypePatterns = map[string]string{
	"futures": `futures?|derivat|perp`,
	"spot":    `spot|cash|wallet`,
	"margin":  `margin|leverage`,
	"savings": `saving|earn|stake`,
	"trading": `trad|order|position`,
}

var (
	irrelevantSheetNames = []string{
		"sheet1", "sheet2", "sheet3", "hoja1", "hoja2", "hoja3",
		"template", "example", "readme", "instructions", "guide",
	}
)

// Sheets decides which sheets of a workbook are analysed. The zero value
// accepts every sheet.
type Sheets struct {
	included   map[string]bool
	excluded   map[string]bool
	rejectSubs []string
	patterns   []*regexp.Regexp
	autoDetect bool
}

// NewSheets returns a filter that accepts every sheet.
func NewSheets() *Sheets {
	return &Sheets{
		included: make(map[string]bool),
		excluded: make(map[string]bool),
	}
}

// FromConfig builds a sheet filter from configuration.
func FromConfig(cfg config.SheetsConfig) (*Sheets, error) {
	f := NewSheets().Include(cfg.Include...).Exclude(cfg.Exclude...)
	for _, p := range cfg.Patterns {
		if _, err := f.AddPattern(p); err != nil {
			return nil, err
		}
	}
	for _, t := range cfg.AccountTypes {
		if _, err := f.AddAccountType(t); err != nil {
			return nil, err
		}
	}
	f.autoDetect = cfg.AutoDetect
	return f, nil
}

// Include accepts the named sheets. Names compare case-insensitively.
func (f *Sheets) Include(names ...string) *Sheets {
	for _, n := range names {
		f.included[strings.ToLower(n)] = true
	}
	return f
}

// Exclude rejects the named sheets. Exclusion beats every other rule.
func (f *Sheets) Exclude(names ...string) *Sheets {
	for _, n := range names {
		f.excluded[strings.ToLower(n)] = true
	}
	return f
}

// RejectContaining rejects every sheet whose name contains one of subs.
func (f *Sheets) RejectContaining(subs ...string) *Sheets {
	for _, s := range subs {
		f.rejectSubs = append(f.rejectSubs, strings.ToLower(s))
	}
	return f
}

// AddPattern accepts sheets matching the case-insensitive regexp.
func (f *Sheets) AddPattern(pattern string) (*Sheets, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return f, fmt.Errorf("AddPattern: %q: %w", pattern, err)
	}
	f.patterns = append(f.patterns, re)
	return f, nil
}

// AddAccountType accepts sheets named like the given account type:
// futures, spot, margin, savings or trading.
func (f *Sheets) AddAccountType(accountType string) (*Sheets, error) {
	pattern, ok := accountTypePatterns[strings.ToLower(accountType)]
	if !ok {
		return f, fmt.Errorf("AddAccountType: unknown account type %q", accountType)
	}
	return f.AddPattern(pattern)
}

// AutoDetect toggles the name heuristic used when no include rule exists.
func (f *Sheets) AutoDetect(on bool) *Sheets {
	f.autoDetect = on
	return f
}

func (f *Sheets) hasSpecificRules() bool {
	return len(f.included) > 0 || len(f.patterns) > 0
}

// Accept reports whether the sheet called name should be analysed.
func (f *Sheets) Accept(name string) bool {
	if f == nil {
		return true
	}
	lower := strings.ToLower(name)

	if f.excluded[lower] || containsAny(lower, f.rejectSubs) {
		return false
	}
	if f.included[lower] {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	if f.hasSpecificRules() {
		return false
	}
	if f.autoDetect {
		return looksRelevant(lower)
	}
	return true
}

// Apply returns the accepted tables in order and the names of the rest.
func (f *Sheets) Apply(tables []*domain.Table) ([]*domain.Table, []string) {
	var kept []*domain.Table
	var skipped []string
	for _, t := range tables {
		if f.Accept(t.Name) {
			kept = append(kept, t)
		} else {
			skipped = append(skipped, t.Name)
		}
	}
	return kept, skipped
}

// SheetsSummary describes the active rules.
type SheetsSummary struct {
	Included          []string `json:"included_sheets"`
	Excluded          []string `json:"excluded_sheets"`
	Patterns          []string `json:"patterns"`
	AutoDetect        bool     `json:"auto_detect"`
	HasSpecificFilter bool     `json:"has_specific_filters"`
}

// Summary lists the active rules.
func (f *Sheets) Summary() SheetsSummary {
	s := SheetsSummary{
		Included:          keys(f.included),
		Excluded:          append(keys(f.excluded), f.rejectSubs...),
		AutoDetect:        f.autoDetect,
		HasSpecificFilter: f.hasSpecificRules(),
	}
	for _, re := range f.patterns {
		s.Patterns = append(s.Patterns, strings.TrimPrefix(re.String(), "(?i)"))
	}
	return s
}

// looksRelevant rejects placeholder sheet names and accepts the rest.
func looksRelevant(lowerName string) bool {
	return !containsAny(lowerName, irrelevantSheetNames)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OnlyFutures accepts futures and derivatives sheets.
func OnlyFutures() *Sheets {
	f, _ := NewSheets().AddAccountType("futures")
	return f
}

// OnlySpot accepts spot and wallet sheets.
func OnlySpot() *Sheets {
	f, _ := NewSheets().AddAccountType("spot")
	return f
}

// MainAccountsOnly rejects demo, test and sandbox sheets.
func MainAccountsOnly() *Sheets {
	return NewSheets().RejectContaining("demo", "test", "sandbox")
}

// RecentDataOnly rejects historical and archived sheets.
func RecentDataOnly() *Sheets {
	return NewSheets().RejectContaining("historical", "archive", "backup", "old")
}

// BySheetNumbers accepts sheets whose name contains one of the numbers.
func BySheetNumbers(numbers ...int) *Sheets {
	f := NewSheets()
	for _, n := range numbers {
		f, _ = f.AddPattern(fmt.Sprintf(`%d`, n))
	}
	return f
}
