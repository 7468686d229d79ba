// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crosstab

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/godal"
)

// bandRowReader adapts a godal raster band to the RowReader interface. Pixels
// are read as float64 and coerced to integer by truncation toward zero.
type bandRowReader struct {
	band godal.Band
	fbuf []float64
}

func (r *bandRowReader) ReadRow(row int, cells []int64) error {
	if err := r.band.Read(0, row, r.fbuf, len(cells), 1); err != nil {
		return err
	}
	for i, v := range r.fbuf {
		cells[i] = int64(v)
	}
	return nil
}

// bandRowWriter adapts the single band of an output dataset to RowWriter.
type bandRowWriter struct {
	band godal.Band
}

func (w *bandRowWriter) WriteRow(row int, ids []uint32) error {
	return w.band.Write(0, row, ids, len(ids), 1)
}

// Combine scans the given rasters pixel by pixel and cross-tabulates the
// unique combinations of their cell values: every distinct tuple of
// per-raster values is assigned a sequential identifier and counted. inputs
// are dataset names openable by gdal (filenames, /vsixxx paths, ...), each
// contributing band bands[i] (1-based, all 1 when bands is nil) under the
// display name names[i].
//
// The first input provides the reference grid: its dimensions drive the scan
// and, when an output raster is requested through OutputTo/OutputFormat, its
// geotransform and spatial reference are copied onto the output. The other
// inputs are assumed to be co-registered on that grid; they are not checked
// against it beyond the per-row reads failing on smaller rasters.
//
// The returned Table holds one row per distinct combination. Identifiers
// written to the output raster pass through uint32, so combinations beyond
// 2^32-1 wrap in the raster; the table itself is never truncated. On error,
// any datasets opened by Combine have been closed; a partially written output
// raster may remain on disk.
func Combine(inputs []string, names []string, bands []int, opts ...CombineOption) (Table, error) {
	co := combineOpts{dtype: godal.UInt32}
	for _, opt := range opts {
		opt.setCombineOpt(&co)
	}
	if len(inputs) == 0 {
		return Table{}, errors.New("no input rasters provided")
	}
	if bands == nil {
		bands = make([]int, len(inputs))
		for i := range bands {
			bands[i] = 1
		}
	}
	if len(names) != len(inputs) || len(bands) != len(inputs) {
		return Table{}, errors.New("inputs, variable names and band numbers must be the same length")
	}
	if co.output != "" && co.driver == "" {
		return Table{}, errors.New("output format must be specified when an output raster is requested")
	}
	table, err := NewCombinationTable(len(inputs), names)
	if err != nil {
		return Table{}, err
	}

	var srcs []*godal.Dataset
	var outDS *godal.Dataset
	defer func() {
		for _, ds := range srcs {
			_ = ds.Close()
		}
		if outDS != nil {
			_ = outDS.Close()
		}
	}()

	for _, name := range inputs {
		ds, err := godal.Open(name, godal.RasterOnly())
		if err != nil {
			return Table{}, fmt.Errorf("open %s: %w", name, err)
		}
		srcs = append(srcs, ds)
	}

	st := srcs[0].Structure()
	cols, rows := st.SizeX, st.SizeY
	readers := make([]RowReader, len(srcs))
	for i, ds := range srcs {
		bnds := ds.Bands()
		if bands[i] < 1 || bands[i] > len(bnds) {
			return Table{}, fmt.Errorf("input %s has no band %d", inputs[i], bands[i])
		}
		readers[i] = &bandRowReader{band: bnds[bands[i]-1], fbuf: make([]float64, cols)}
	}

	var writer RowWriter
	if co.output != "" {
		outDS, err = godal.Create(co.driver, co.output, 1, co.dtype, cols, rows,
			godal.CreationOption(co.creation...))
		if err != nil {
			return Table{}, fmt.Errorf("create %s: %w", co.output, err)
		}
		// the identifier raster is still usable without georeferencing,
		// failures to copy it are recoverable
		if gt, err := srcs[0].GeoTransform(); err == nil {
			if err = outDS.SetGeoTransform(gt); err != nil {
				co.warn(fmt.Errorf("set geotransform on %s: %w", co.output, err))
			}
		} else {
			co.warn(fmt.Errorf("get geotransform of %s: %w", inputs[0], err))
		}
		sr := srcs[0].SpatialRef()
		if err = outDS.SetSpatialRef(sr); err != nil {
			co.warn(fmt.Errorf("set spatial ref on %s: %w", co.output, err))
		}
		sr.Close()
		writer = &bandRowWriter{band: outDS.Bands()[0]}
	}

	if err = runCombine(readers, cols, rows, writer, table, co.progress); err != nil {
		return Table{}, err
	}

	// all raster handles are released before the table is exported, a close
	// failure on the written output invalidates the result
	for i, ds := range srcs {
		if err = ds.Close(); err != nil {
			co.warn(fmt.Errorf("close %s: %w", inputs[i], err))
		}
	}
	srcs = nil
	if outDS != nil {
		ds := outDS
		outDS = nil
		if err = ds.Close(); err != nil {
			return Table{}, fmt.Errorf("close %s: %w", co.output, err)
		}
	}
	return table.Export(), nil
}

func (co *combineOpts) warn(err error) {
	if co.warning != nil {
		co.warning(err)
	}
}
