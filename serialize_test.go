package crosstab

import (
	"bytes"
	"encoding/csv"
	"sort"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) Table {
	t.Helper()
	tbl, err := NewCombinationTable(2, []string{"A", "B"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = tbl.Upsert([]int64{5, 10}, 1)
		require.NoError(t, err)
	}
	_, err = tbl.Upsert([]int64{5, 11}, 1)
	require.NoError(t, err)
	return tbl.Export()
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, sampleTable(t).WriteCSV(buf))

	recs, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"id", "count", "A", "B"}, recs[0])
	rows := recs[1:]
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	assert.Equal(t, []string{"1", "3", "5", "10"}, rows[0])
	assert.Equal(t, []string{"2", "1", "5", "11"}, rows[1])
}

func TestWriteArrow(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, sampleTable(t).WriteArrow(buf))

	fr, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer fr.Close()

	sc := fr.Schema()
	names := make([]string, 0, sc.NumFields())
	for i := 0; i < sc.NumFields(); i++ {
		names = append(names, sc.Field(i).Name)
	}
	assert.Equal(t, []string{"id", "count", "A", "B"}, names)

	require.Equal(t, 1, fr.NumRecords())
	rec, err := fr.Record(0)
	require.NoError(t, err)
	require.EqualValues(t, 2, rec.NumRows())

	ids := rec.Column(0).(*array.Uint64)
	counts := rec.Column(1).(*array.Float64)
	got := map[uint64]float64{}
	for i := 0; i < ids.Len(); i++ {
		got[ids.Value(i)] = counts.Value(i)
	}
	assert.Equal(t, map[uint64]float64{1: 3, 2: 1}, got)
}
