package domain

// Role is the semantic meaning assigned to a column.
type Role string

const (
	RoleTimestamp Role = "timestamp"
	RoleAmount    Role = "amount"
	RoleType      Role = "type"
	RoleAsset     Role = "asset"
)

// Roles lists the inferable roles in evaluation order.
var Roles = []Role{RoleTimestamp, RoleAmount, RoleType, RoleAsset}

// ColumnRoleMap holds at most one column per role. An empty string means
// no column matched.
type ColumnRoleMap struct {
	Timestamp string `json:"timestamp,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Type      string `json:"type,omitempty"`
	Asset     string `json:"asset,omitempty"`

	// MainPnL is the column used for financial totals.
	MainPnL string `json:"main_pnl,omitempty"`
}

// Get returns the column bound to role.
func (m ColumnRoleMap) Get(role Role) string {
	switch role {
	case RoleTimestamp:
		return m.Timestamp
	case RoleAmount:
		return m.Amount
	case RoleType:
		return m.Type
	case RoleAsset:
		return m.Asset
	}
	return ""
}

// Set binds column to role.
func (m *ColumnRoleMap) Set(role Role, column string) {
	switch role {
	case RoleTimestamp:
		m.Timestamp = column
	case RoleAmount:
		m.Amount = column
	case RoleType:
		m.Type = column
	case RoleAsset:
		m.Asset = column
	}
}

// IsTradingSheet reports whether a main PnL column was resolved.
func (m ColumnRoleMap) IsTradingSheet() bool {
	return m.MainPnL != ""
}
