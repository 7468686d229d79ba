package crosstab

import (
	"fmt"
	"sort"

	"github.com/airbusgeo/godal"
)

// ValueCount is the number of pixels holding a given cell value in one
// raster band.
type ValueCount struct {
	Value int64
	Count float64
}

// ValueCounts scans band band (1-based) of the named raster and tallies the
// occurrences of each distinct cell value. It is the single-raster degenerate
// case of Combine: no identifiers are assigned and no output raster is
// written, the scalar value itself is the category. Floating point cells are
// coerced to integer by truncation toward zero. Results are sorted by Value.
func ValueCounts(input string, band int, opts ...ValueCountOption) ([]ValueCount, error) {
	vo := valueCountOpts{}
	for _, opt := range opts {
		opt.setValueCountOpt(&vo)
	}
	ds, err := godal.Open(input, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", input, err)
	}
	defer ds.Close()

	bnds := ds.Bands()
	if band < 1 || band > len(bnds) {
		return nil, fmt.Errorf("input %s has no band %d", input, band)
	}
	st := ds.Structure()
	rd := bandRowReader{band: bnds[band-1], fbuf: make([]float64, st.SizeX)}
	cells := make([]int64, st.SizeX)
	counts := make(map[int64]float64)
	for y := 0; y < st.SizeY; y++ {
		if err := rd.ReadRow(y, cells); err != nil {
			return nil, fmt.Errorf("read row %d: %w", y, err)
		}
		for _, v := range cells {
			counts[v]++
		}
		if vo.progress != nil {
			if st.SizeY == 1 {
				vo.progress(1)
			} else {
				vo.progress(float64(y) / float64(st.SizeY-1))
			}
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}
