package dataset

// Table is a decoded CSV file: named columns and rows in file order.
type Table struct {
	Columns  []string
	Rows     [][]string
	Encoding string

	index map[string]int
}

func NewTable(columns []string, rows [][]string) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return &Table{Columns: columns, Rows: rows, index: idx}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Value returns the cell of row i under column name. ok is false when the
// column is unknown or the row is too short to hold it.
func (t *Table) Value(i int, name string) (string, bool) {
	c, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	row := t.Rows[i]
	if c >= len(row) {
		return "", false
	}
	return row[c], true
}
