package crosstab

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// WriteCSV serializes the table to w as csv with a header row. Counts are
// formatted with the minimal number of digits that round-trips float64.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, 2+len(t.names))
	for _, row := range t.rows {
		rec[0] = strconv.FormatUint(row.ID, 10)
		rec[1] = strconv.FormatFloat(row.Count, 'f', -1, 64)
		for i, c := range row.Cells {
			rec[2+i] = strconv.FormatInt(c, 10)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// arrowSchema returns the arrow schema of the table: id uint64, count
// float64, then one int64 field per variable.
func (t Table) arrowSchema() *arrow.Schema {
	fields := []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "count", Type: arrow.PrimitiveTypes.Float64},
	}
	for _, n := range t.names {
		fields = append(fields, arrow.Field{Name: n, Type: arrow.PrimitiveTypes.Int64})
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow serializes the table to w as a single-record arrow IPC file
// (readable as Feather v2).
func (t Table) WriteArrow(w io.Writer) error {
	schema := t.arrowSchema()
	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bld.Release()
	for _, row := range t.rows {
		bld.Field(0).(*array.Uint64Builder).Append(row.ID)
		bld.Field(1).(*array.Float64Builder).Append(row.Count)
		for i, c := range row.Cells {
			bld.Field(2 + i).(*array.Int64Builder).Append(c)
		}
	}
	rec := bld.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return fw.Close()
}
