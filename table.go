// Package crosstab cross-tabulates co-registered categorical rasters: it
// scans N inputs pixel by pixel, assigns a sequential identifier to every
// unique combination of cell values, and produces a frequency table and,
// optionally, an output raster of per-pixel combination identifiers.
// Raster access goes through github.com/airbusgeo/godal; the counting engine
// itself only depends on the narrow RowReader/RowWriter interfaces.
package crosstab

import (
	"errors"
	"fmt"
)

// CombinationTable deduplicates fixed-length tuples of integer cell values,
// assigning each distinct tuple a stable identifier and accumulating a count
// of how many times it was seen.
//
// Identifiers are a dense sequence starting at 1, handed out in first-seen
// order; 0 is never assigned and can be used by callers as a "not present"
// sentinel. A tuple's identifier never changes once assigned, only its count
// grows. A CombinationTable is not safe for concurrent use.
type CombinationTable struct {
	keyLen  int
	names   []string
	buckets map[uint64][]*cmbEntry
	lastID  uint64
}

// cmbEntry is the stored state for one distinct tuple. cells is a private
// copy made on first insert.
type cmbEntry struct {
	cells []int64
	id    uint64
	count float64
}

// NewCombinationTable returns an empty table for tuples of keyLen components.
// names are the display names of the tuple components used by Export; there
// must be exactly one per component.
func NewCombinationTable(keyLen int, names []string) (*CombinationTable, error) {
	if keyLen < 1 {
		return nil, errors.New("combination table needs at least one tuple component")
	}
	if len(names) != keyLen {
		return nil, fmt.Errorf("%d variable names provided for tuples of length %d", len(names), keyLen)
	}
	return &CombinationTable{
		keyLen:  keyLen,
		names:   append([]string(nil), names...),
		buckets: make(map[uint64][]*cmbEntry),
	}, nil
}

// hashCells folds the tuple components left-to-right with a boost-style
// hash_combine. The hash is never persisted or compared across processes,
// only internal consistency matters.
func hashCells(cells []int64) uint64 {
	var seed uint64
	for _, v := range cells {
		seed ^= uint64(v) + 0x9e3779b97f4a7c15 + (seed << 6) + (seed >> 2)
	}
	return seed
}

func cellsEqual(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Upsert records one occurrence of the given tuple, weighted by increment,
// and returns the tuple's identifier. The first upsert of a tuple assigns
// the next unused identifier; later upserts only add increment to its count.
// An error is returned if the tuple does not have the table's component count.
func (t *CombinationTable) Upsert(cells []int64, increment float64) (uint64, error) {
	if len(cells) != t.keyLen {
		return 0, fmt.Errorf("tuple has %d components, table expects %d", len(cells), t.keyLen)
	}
	return t.upsert(cells, increment), nil
}

// upsert is the unchecked fast path. cells is copied on first insert so the
// caller may reuse its slice.
func (t *CombinationTable) upsert(cells []int64, increment float64) uint64 {
	h := hashCells(cells)
	for _, e := range t.buckets[h] {
		if cellsEqual(e.cells, cells) {
			e.count += increment
			return e.id
		}
	}
	t.lastID++
	t.buckets[h] = append(t.buckets[h], &cmbEntry{
		cells: append([]int64(nil), cells...),
		id:    t.lastID,
		count: increment,
	})
	return t.lastID
}

// UpsertRows upserts a batch of tuples, one slice per tuple, applying the
// same increment to each. The returned identifiers match the input order,
// which is also the order used for first-seen identifier assignment. The
// batch is rejected as a whole: a length violation anywhere leaves the table
// untouched.
func (t *CombinationTable) UpsertRows(rows [][]int64, increment float64) ([]uint64, error) {
	for i, cells := range rows {
		if len(cells) != t.keyLen {
			return nil, fmt.Errorf("tuple %d has %d components, table expects %d", i, len(cells), t.keyLen)
		}
	}
	ids := make([]uint64, len(rows))
	for i, cells := range rows {
		ids[i] = t.upsert(cells, increment)
	}
	return ids, nil
}

// UpsertColumns upserts a batch of tuples presented column-wise: columns
// must hold exactly one slice per tuple component, all of the same length n,
// and tuple j is (columns[0][j], ..., columns[keyLen-1][j]). This is the
// natural layout for a stack of raster scanlines. Semantics are otherwise
// identical to UpsertRows.
func (t *CombinationTable) UpsertColumns(columns [][]int64, increment float64) ([]uint64, error) {
	if len(columns) != t.keyLen {
		return nil, fmt.Errorf("%d columns provided, table expects %d", len(columns), t.keyLen)
	}
	n := len(columns[0])
	for i, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("column %d has %d values, column 0 has %d", i, len(col), n)
		}
	}
	ids := make([]uint64, n)
	cells := make([]int64, t.keyLen)
	for j := 0; j < n; j++ {
		for i := range columns {
			cells[i] = columns[i][j]
		}
		ids[j] = t.upsert(cells, increment)
	}
	return ids, nil
}

// Len returns the number of distinct tuples seen so far.
func (t *CombinationTable) Len() int {
	return int(t.lastID)
}

// Export snapshots the table contents. Row order is unspecified (it follows
// the internal bucket layout); callers needing identifier order must sort on
// TableRow.ID. The table remains usable after an export.
func (t *CombinationTable) Export() Table {
	rows := make([]TableRow, 0, t.lastID)
	for _, chain := range t.buckets {
		for _, e := range chain {
			rows = append(rows, TableRow{
				ID:    e.id,
				Count: e.count,
				Cells: append([]int64(nil), e.cells...),
			})
		}
	}
	return Table{names: append([]string(nil), t.names...), rows: rows}
}

// Table is an exported combination-frequency table: one row per distinct
// tuple, with the identifier, the accumulated count and the tuple components.
type Table struct {
	names []string
	rows  []TableRow
}

// TableRow is one distinct tuple of a Table.
type TableRow struct {
	ID    uint64
	Count float64
	Cells []int64
}

// Len returns the number of rows contained in the table
func (t Table) Len() int {
	return len(t.rows)
}

// Row returns the i'th row of the table. i must be between 0 and Len()-1.
func (t Table) Row(i int) TableRow {
	return t.rows[i]
}

// ColumnNames returns the table's column names in serialization order:
// "id", "count", then the variable names supplied at construction.
func (t Table) ColumnNames() []string {
	return append([]string{"id", "count"}, t.names...)
}
