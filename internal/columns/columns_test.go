package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

func table(columns []string, rows ...[]string) *domain.Table {
	t := domain.NewTable("main", columns)
	for _, r := range rows {
		row := make(domain.Row, len(columns))
		for i, c := range columns {
			if i < len(r) {
				row[c] = domain.NewValue(r[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestInfer(t *testing.T) {
	vocab := config.DefaultVocabulary()

	tests := []struct {
		name    string
		columns []string
		want    domain.ColumnRoleMap
	}{
		{
			name:    "exchange futures export",
			columns: []string{"Date", "Side", "Realized_PnL", "Symbol"},
			want: domain.ColumnRoleMap{
				Timestamp: "Date", Amount: "Realized_PnL", Type: "Side", Asset: "Symbol", MainPnL: "Realized_PnL",
			},
		},
		{
			name:    "first column wins",
			columns: []string{"Time(UTC)", "Create Date", "Coin", "Pair", "Amount", "Total"},
			want: domain.ColumnRoleMap{
				Timestamp: "Time(UTC)", Amount: "Amount", Asset: "Coin", MainPnL: "Amount",
			},
		},
		{
			name:    "substring quirk is kept",
			columns: []string{"typewriter", "PnL"},
			want:    domain.ColumnRoleMap{Type: "typewriter", Amount: "PnL", MainPnL: "PnL"},
		},
		{
			name:    "nothing matches",
			columns: []string{"foo", "bar"},
			want:    domain.ColumnRoleMap{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(table(tt.columns, make([]string, len(tt.columns))), vocab)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMainPnLColumn_LiteralPnLWins(t *testing.T) {
	vocab := config.DefaultVocabulary()
	tbl := table([]string{"Balance", "Total", "PnL"},
		[]string{"100", "5", "10"},
		[]string{"90", "5", "-10"},
	)

	assert.Equal(t, "PnL", MainPnLColumn(tbl, vocab))
}

func TestMainPnLColumn_PriorityOrder(t *testing.T) {
	vocab := config.DefaultVocabulary()
	tbl := table([]string{"Amount", "Realized PnL"}, []string{"1", "2"})

	assert.Equal(t, "Realized PnL", MainPnLColumn(tbl, vocab))
}

func TestMainPnLColumn_UnderscoreNormalisation(t *testing.T) {
	vocab := config.DefaultVocabulary()
	tbl := table([]string{"Net Profit", "profit_loss"}, []string{"1", "2"})

	// "profit_loss" outranks "net_profit" in the keyword order.
	assert.Equal(t, "profit_loss", MainPnLColumn(tbl, vocab))
}

func TestMainPnLColumn_Fallback(t *testing.T) {
	vocab := config.DefaultVocabulary()

	tbl := table([]string{"Loss Noise", "Balance", "Unrealized"},
		[]string{"0.001", "abc", "0"},
		[]string{"-0.005", "12", "3.5"},
	)
	// Loss Noise is near zero and Balance is not numeric.
	assert.Equal(t, "Unrealized", MainPnLColumn(tbl, vocab))

	noise := table([]string{"Total"}, []string{"0"}, []string{"0.001"})
	assert.Equal(t, "", MainPnLColumn(noise, vocab))
}

func TestAmountColumns(t *testing.T) {
	vocab := config.DefaultVocabulary()
	tbl := table([]string{"Date", "Amount", "Fee", "Balance"})

	assert.Equal(t, []string{"Amount", "Balance"}, AmountColumns(tbl, vocab))
}

func TestMatch_CustomVocabulary(t *testing.T) {
	col, ok := Match([]string{"Fecha", "Lado"}, []string{"fecha"})
	assert.True(t, ok)
	assert.Equal(t, "Fecha", col)

	_, ok = Match([]string{"Fecha"}, nil)
	assert.False(t, ok)
}
