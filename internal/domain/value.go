package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a single spreadsheet cell kept in its textual form.
// Numbers and timestamps are parsed on demand.
type Value struct {
	Raw string
}

// NewValue wraps a raw cell string.
func NewValue(raw string) Value {
	return Value{Raw: raw}
}

// String returns the trimmed cell text.
func (v Value) String() string {
	return strings.TrimSpace(v.Raw)
}

// IsEmpty reports whether the cell carries no usable value.
// Common null spellings produced by exporters count as empty.
func (v Value) IsEmpty() bool {
	switch strings.ToLower(v.String()) {
	case "", "nan", "null", "none", "n/a", "na", "nat", "-":
		return true
	}
	return false
}

// Number parses the cell as a decimal number. Currency symbols, thousands
// separators, accounting-style parentheses and a trailing minus are
// tolerated.
func (v Value) Number() (float64, bool) {
	if v.IsEmpty() {
		return 0, false
	}
	s, ok := normalizeNumber(v.String())
	if !ok {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Time parses the cell as a timestamp. Numeric cells are read as Unix
// epoch seconds or milliseconds.
func (v Value) Time() (time.Time, bool) {
	if v.IsEmpty() {
		return time.Time{}, false
	}
	s := v.String()
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, ok := v.Number(); ok {
		switch {
		case n >= 1e11:
			return time.UnixMilli(int64(n)).UTC(), true
		case n >= 1e9:
			return time.Unix(int64(n), 0).UTC(), true
		}
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
	"01-02-06 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2-Jan-06",
	"02-Jan-2006",
	time.RFC1123,
	time.RFC1123Z,
	time.ANSIC,
}

var currencyTokens = []string{"$", "€", "£", "¥", "₿", "USDT", "USDC", "USD", "EUR", "BTC"}

func normalizeNumber(s string) (string, bool) {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "'", "")
	if !strings.ContainsAny(s, "0123456789") {
		return "", false
	}
	// 12.5- as printed by some ledgers
	if len(s) > 1 && strings.HasSuffix(s, "-") {
		if negative {
			return "", false
		}
		negative = true
		s = s[:len(s)-1]
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A lone comma is decimal unless three digits follow it. 0,123
		// can only be a decimal.
		whole := strings.TrimLeft(s[:lastComma], "+-")
		if strings.Count(s, ",") == 1 && (len(s)-lastComma-1 != 3 || whole == "" || whole == "0") {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if negative {
		if strings.HasPrefix(s, "-") {
			return "", false
		}
		s = "-" + s
	}
	return s, true
}
