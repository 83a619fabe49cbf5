package table

import "fmt"

// Table is an ordered sequence of named columns sharing one row count.
type Table struct {
	cols   []Column
	byName map[string]int
}

// New creates a table from the given columns. All columns must have the same
// length and unique names.
func New(cols ...Column) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := t.append(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) append(c Column) error {
	if _, exists := t.byName[c.Name()]; exists {
		return fmt.Errorf("duplicate column name %q", c.Name())
	}
	if len(t.cols) > 0 && c.Len() != t.cols[0].Len() {
		return fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), t.cols[0].Len())
	}
	t.byName[c.Name()] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// NumRows returns the shared row count, 0 for a table with no columns.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []Column { return t.cols }

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// ReplaceColumn swaps the column with the same name for a new representation.
// The replacement must keep the name and row count.
func (t *Table) ReplaceColumn(c Column) error {
	i, ok := t.byName[c.Name()]
	if !ok {
		return fmt.Errorf("no column named %q", c.Name())
	}
	if c.Len() != t.cols[i].Len() {
		return fmt.Errorf("replacement for %q has %d rows, expected %d", c.Name(), c.Len(), t.cols[i].Len())
	}
	t.cols[i] = c
	return nil
}

// MemoryBytes returns the deep in-memory footprint of all columns.
func (t *Table) MemoryBytes() int64 {
	var total int64
	for _, c := range t.cols {
		total += c.MemoryBytes()
	}
	return total
}
