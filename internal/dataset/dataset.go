// Package dataset loads a delimited file into an in-memory Arrow record and
// renders previews of it.
//
// Every column is a nullable UTF-8 string column; an empty cell is null.
// No types are inferred and nothing is validated.
package dataset

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/olekukonko/tablewriter"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/models"
)

// NullText is how a null cell is shown in previews.
const NullText = "NaN"

type Dataset struct {
	Path       string
	Descriptor models.Descriptor
	Columns    []string
	record     arrow.Record
}

func (d *Dataset) NumRows() int {
	if d.record == nil {
		return 0
	}
	return int(d.record.NumRows())
}

func (d *Dataset) NumColumns() int {
	return len(d.Columns)
}

// Value returns the cell at (row, col) and whether it holds a value.
func (d *Dataset) Value(row, col int) (string, bool) {
	column := d.record.Column(col).(*array.String)
	if column.IsNull(row) {
		return "", false
	}
	return column.Value(row), true
}

// Row returns the non-null cells of a row keyed by column name.
func (d *Dataset) Row(row int) map[string]string {
	out := make(map[string]string, len(d.Columns))
	for col, name := range d.Columns {
		if v, ok := d.Value(row, col); ok {
			out[name] = v
		}
	}
	return out
}

// Head returns up to n rows as text, nulls rendered as NullText.
func (d *Dataset) Head(n int) [][]string {
	if n > d.NumRows() {
		n = d.NumRows()
	}
	rows := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(d.Columns))
		for c := range d.Columns {
			if v, ok := d.Value(r, c); ok {
				row[c] = v
			} else {
				row[c] = NullText
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WritePreview renders the first n rows as a table followed by the shape.
func (d *Dataset) WritePreview(w io.Writer, n int) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{""}, d.Columns...))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for i, row := range d.Head(n) {
		table.Append(append([]string{strconv.Itoa(i)}, row...))
	}
	table.Render()
	_, err := fmt.Fprintf(w, "\n[%d rows x %d columns]\n", d.NumRows(), d.NumColumns())
	return err
}

// Release frees the Arrow buffers. The dataset is unusable afterwards.
func (d *Dataset) Release() {
	if d.record != nil {
		d.record.Release()
		d.record = nil
	}
}
