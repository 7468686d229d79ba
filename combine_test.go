package crosstab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memGrid is an in-memory RowReader/RowWriter used to exercise the combine
// driver without a raster backend.
type memGrid struct {
	cols  int
	cells []int64
	ids   []uint32
}

func newMemGrid(cols int, cells ...int64) *memGrid {
	return &memGrid{cols: cols, cells: cells}
}

func (g *memGrid) ReadRow(row int, cells []int64) error {
	off := row * g.cols
	if off+g.cols > len(g.cells) {
		return errors.New("row out of bounds")
	}
	copy(cells, g.cells[off:off+g.cols])
	return nil
}

func (g *memGrid) WriteRow(row int, ids []uint32) error {
	if g.ids == nil {
		g.ids = make([]uint32, len(g.cells))
	}
	copy(g.ids[row*g.cols:], ids)
	return nil
}

func TestRunCombineRowAssembly(t *testing.T) {
	// two single-row 3-column rasters, tuples assembled column-wise and
	// ids assigned left to right
	a := newMemGrid(3, 1, 1, 2)
	b := newMemGrid(3, 9, 8, 9)
	out := &memGrid{cols: 3, cells: make([]int64, 3)}
	tbl, _ := NewCombinationTable(2, []string{"A", "B"})

	err := runCombine([]RowReader{a, b}, 3, 1, out, tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, out.ids)

	rows := exportedRowsByID(tbl.Export())
	require.Len(t, rows, 3)
	assert.Equal(t, TableRow{ID: 1, Count: 1, Cells: []int64{1, 9}}, rows[0])
	assert.Equal(t, TableRow{ID: 2, Count: 1, Cells: []int64{1, 8}}, rows[1])
	assert.Equal(t, TableRow{ID: 3, Count: 1, Cells: []int64{2, 9}}, rows[2])
}

func TestRunCombineAccumulatesAcrossRows(t *testing.T) {
	a := newMemGrid(2,
		1, 1,
		1, 2)
	b := newMemGrid(2,
		7, 7,
		7, 7)
	tbl, _ := NewCombinationTable(2, []string{"A", "B"})
	err := runCombine([]RowReader{a, b}, 2, 2, nil, tbl, nil)
	require.NoError(t, err)

	rows := exportedRowsByID(tbl.Export())
	require.Len(t, rows, 2)
	assert.Equal(t, TableRow{ID: 1, Count: 3, Cells: []int64{1, 7}}, rows[0])
	assert.Equal(t, TableRow{ID: 2, Count: 1, Cells: []int64{2, 7}}, rows[1])
}

func TestRunCombineProgress(t *testing.T) {
	tbl, _ := NewCombinationTable(1, []string{"v"})
	var fractions []float64
	progress := func(f float64) { fractions = append(fractions, f) }

	err := runCombine([]RowReader{newMemGrid(1, 1, 2, 3)}, 1, 3, nil, tbl, progress)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, fractions)
}

func TestRunCombineSingleRowProgress(t *testing.T) {
	// rows==1 must not divide by zero, completion is reported directly
	tbl, _ := NewCombinationTable(1, []string{"v"})
	var fractions []float64
	err := runCombine([]RowReader{newMemGrid(2, 4, 5)}, 2, 1,
		nil, tbl, func(f float64) { fractions = append(fractions, f) })
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, fractions)
}

type failingReader struct {
	failAt int
	calls  int
}

func (r *failingReader) ReadRow(row int, cells []int64) error {
	r.calls++
	if row >= r.failAt {
		return errors.New("io failure")
	}
	for i := range cells {
		cells[i] = int64(row)
	}
	return nil
}

func TestRunCombineReadFailure(t *testing.T) {
	tbl, _ := NewCombinationTable(1, []string{"v"})
	err := runCombine([]RowReader{&failingReader{failAt: 2}}, 4, 5, nil, tbl, nil)
	assert.Error(t, err)
	// rows processed before the failure are reflected in the table
	assert.Equal(t, 2, tbl.Len())
}

func TestCombineValidation(t *testing.T) {
	// mismatched argument lengths must fail before any raster is opened:
	// these inputs do not exist, an open attempt would produce a different
	// error than the length contract message
	_, err := Combine([]string{"/nonexistent/a.tif", "/nonexistent/b.tif"},
		[]string{"A", "B"}, []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same length")

	_, err = Combine([]string{"/nonexistent/a.tif"}, []string{"A", "B"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same length")

	_, err = Combine(nil, nil, nil)
	assert.Error(t, err)

	// an output raster without a format is rejected before any I/O
	_, err = Combine([]string{"/nonexistent/a.tif"}, []string{"A"}, nil,
		OutputTo("/nonexistent/out.tif"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output format")
}
