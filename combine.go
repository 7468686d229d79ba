package crosstab

import "fmt"

// RowReader yields one scanline of integer cell values for a single raster
// band. Implementations fill cells entirely; len(cells) is the grid width.
// Floating point sources must coerce to integer by truncation toward zero.
type RowReader interface {
	ReadRow(row int, cells []int64) error
}

// RowWriter consumes one scanline of combination identifiers for the single
// band of an output raster.
type RowWriter interface {
	WriteRow(row int, ids []uint32) error
}

// ProgressFn receives the completion fraction of a running scan, in [0,1].
// It is invoked once per processed row.
type ProgressFn func(complete float64)

// runCombine drives the row-by-row combination scan: for each of the rows
// scanlines it reads one row from every reader, stacks them into per-pixel
// tuples, upserts the whole row into table with increment 1 and, when out is
// not nil, writes the returned identifiers back at the same row. Rows are
// processed strictly top to bottom, pixels left to right, so identifier
// assignment is reproducible for identical inputs.
func runCombine(readers []RowReader, cols, rows int, out RowWriter, table *CombinationTable, progress ProgressFn) error {
	bufs := make([][]int64, len(readers))
	for i := range bufs {
		bufs[i] = make([]int64, cols)
	}
	var idbuf []uint32
	if out != nil {
		idbuf = make([]uint32, cols)
	}
	for y := 0; y < rows; y++ {
		for i, rd := range readers {
			if err := rd.ReadRow(y, bufs[i]); err != nil {
				return fmt.Errorf("read row %d of input %d: %w", y, i+1, err)
			}
		}
		ids, err := table.UpsertColumns(bufs, 1)
		if err != nil {
			return err
		}
		if out != nil {
			for x, id := range ids {
				idbuf[x] = uint32(id)
			}
			if err := out.WriteRow(y, idbuf); err != nil {
				return fmt.Errorf("write row %d: %w", y, err)
			}
		}
		if progress != nil {
			// a single-row grid would divide by zero in the usual
			// y/(rows-1) fraction, report completion directly
			if rows == 1 {
				progress(1)
			} else {
				progress(float64(y) / float64(rows-1))
			}
		}
	}
	return nil
}
