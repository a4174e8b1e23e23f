package domain

import (
	"time"
)

// Transaction is a typed view of one row. Nil fields mean the role was not
// resolved or the cell could not be parsed.
type Transaction struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Amount    *float64   `json:"amount,omitempty"`
	Type      *string    `json:"type,omitempty"`
	Asset     *string    `json:"asset,omitempty"`
	Account   string     `json:"account"`
}

// NewTransaction builds a transaction from row using the resolved roles.
// The amount comes from the main PnL column.
func NewTransaction(account string, row Row, roles ColumnRoleMap) Transaction {
	tx := Transaction{Account: account}
	if roles.Timestamp != "" {
		if t, ok := row.Get(roles.Timestamp).Time(); ok {
			tx.Timestamp = &t
		}
	}
	if roles.MainPnL != "" {
		if n, ok := row.Get(roles.MainPnL).Number(); ok {
			tx.Amount = &n
		}
	}
	if roles.Type != "" {
		if v := row.Get(roles.Type); !v.IsEmpty() {
			s := v.String()
			tx.Type = &s
		}
	}
	if roles.Asset != "" {
		if v := row.Get(roles.Asset); !v.IsEmpty() {
			s := v.String()
			tx.Asset = &s
		}
	}
	return tx
}
