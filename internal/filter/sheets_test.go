package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

func TestSheets_Accept(t *testing.T) {
	tests := []struct {
		name   string
		filter *Sheets
		accept []string
		reject []string
	}{
		{
			name:   "zero rules accept everything",
			filter: NewSheets(),
			accept: []string{"Sheet1", "Futures", "README"},
		},
		{
			name:   "include list",
			filter: NewSheets().Include("Futures", "spot"),
			accept: []string{"futures", "Spot"},
			reject: []string{"Margin"},
		},
		{
			name:   "exclusion beats inclusion",
			filter: NewSheets().Include("Demo").Exclude("demo"),
			reject: []string{"Demo"},
		},
		{
			name:   "account type",
			filter: OnlyFutures(),
			accept: []string{"USDT-M Futures", "Perpetual", "Derivatives"},
			reject: []string{"Spot"},
		},
		{
			name:   "main accounts",
			filter: MainAccountsOnly(),
			accept: []string{"Main", "Futures"},
			reject: []string{"Demo Account", "test", "Sandbox 2"},
		},
		{
			name:   "recent data",
			filter: RecentDataOnly(),
			accept: []string{"2024"},
			reject: []string{"Historical 2019", "Archive"},
		},
		{
			name:   "sheet numbers",
			filter: BySheetNumbers(2),
			accept: []string{"Account 2"},
			reject: []string{"Account 1"},
		},
		{
			name:   "auto detect",
			filter: NewSheets().AutoDetect(true),
			accept: []string{"Futures History", "Cuenta"},
			reject: []string{"Sheet1", "Template", "README"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range tt.accept {
				assert.True(t, tt.filter.Accept(n), "expected %q accepted", n)
			}
			for _, n := range tt.reject {
				assert.False(t, tt.filter.Accept(n), "expected %q rejected", n)
			}
		})
	}
}

func TestSheets_Apply(t *testing.T) {
	tables := []*domain.Table{
		domain.NewTable("Futures", nil),
		domain.NewTable("Template", nil),
		domain.NewTable("Spot", nil),
	}

	kept, skipped := NewSheets().AutoDetect(true).Apply(tables)

	require.Len(t, kept, 2)
	assert.Equal(t, "Futures", kept[0].Name)
	assert.Equal(t, "Spot", kept[1].Name)
	assert.Equal(t, []string{"Template"}, skipped)
}

func TestFromConfig(t *testing.T) {
	f, err := FromConfig(config.SheetsConfig{
		Exclude:      []string{"Summary"},
		AccountTypes: []string{"margin"},
	})
	require.NoError(t, err)

	assert.True(t, f.Accept("Cross Margin"))
	assert.False(t, f.Accept("Summary"))
	assert.False(t, f.Accept("Spot"))

	summary := f.Summary()
	assert.True(t, summary.HasSpecificFilter)
	assert.Equal(t, []string{"summary"}, summary.Excluded)
	assert.Equal(t, []string{"margin|leverage"}, summary.Patterns)

	_, err = FromConfig(config.SheetsConfig{AccountTypes: []string{"options"}})
	assert.Error(t, err)

	_, err = FromConfig(config.SheetsConfig{Patterns: []string{"("}})
	assert.Error(t, err)
}
