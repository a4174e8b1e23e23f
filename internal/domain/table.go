package domain

// Row maps column names to cell values.
type Row map[string]Value

// Get returns the value stored under column, or an empty value.
func (r Row) Get(column string) Value {
	return r[column]
}

// Table is one named sheet of an uploaded file. Columns keep the
// left-to-right order of the header row.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns []string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Values returns the cells of column in row order.
func (t *Table) Values(column string) []Value {
	values := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Get(column)
	}
	return values
}

// Numbers returns the numeric cells of column in row order, skipping
// empty and unparseable cells.
func (t *Table) Numbers(column string) []float64 {
	var out []float64
	for _, row := range t.Rows {
		if n, ok := row.Get(column).Number(); ok {
			out = append(out, n)
		}
	}
	return out
}

// IsNumeric reports whether column has at least one non-empty cell and
// every non-empty cell parses as a number.
func (t *Table) IsNumeric(column string) bool {
	seen := false
	for _, row := range t.Rows {
		v := row.Get(column)
		if v.IsEmpty() {
			continue
		}
		if _, ok := v.Number(); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Filter returns a new table holding the rows for which keep returns true.
// The receiver is not modified.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Format identifies the container a workbook was read from.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// FileMetadata describes a loaded file.
type FileMetadata struct {
	FileName     string `json:"file_name"`
	FileType     Format `json:"file_type"`
	SizeBytes    int64  `json:"size_bytes"`
	TotalSheets  int    `json:"total_sheets"`
	TotalRows    int    `json:"total_rows"`
	TotalColumns int    `json:"total_columns"`
	Encoding     string `json:"encoding,omitempty"`
}

// Workbook is the loader's output: every table of a file in sheet order.
type Workbook struct {
	Tables   []*Table
	Metadata FileMetadata
}

// Table returns the table called name, or nil.
func (w *Workbook) Table(name string) *Table {
	for _, t := range w.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// SheetNames lists table names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Tables))
	for i, t := range w.Tables {
		names[i] = t.Name
	}
	return names
}
