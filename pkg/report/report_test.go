package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/rtd"
)

const outputCSV = `Resistance (Ohms),Measured Temperature (°C),Calculated Temperature (°C),Error (°C)
100,0.05,0,0.05
5,-260,,
`

func readSheet(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	return rows
}

func TestCSVToXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := CSVToXLSX(&buf, strings.NewReader(outputCSV)); err != nil {
		t.Fatalf("CSVToXLSX() error = %v", err)
	}

	rows := readSheet(t, buf.Bytes())
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Resistance (Ohms)" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "0.05" {
		t.Errorf("rows[1] = %v", rows[1])
	}
}

func TestConcatenate(t *testing.T) {
	var buf bytes.Buffer
	err := Concatenate(&buf, strings.NewReader("a,1\nb,2\n"), strings.NewReader("c,3\n"))
	if err != nil {
		t.Fatalf("Concatenate() error = %v", err)
	}

	rows := readSheet(t, buf.Bytes())
	want := []string{"a,1", "b,2", "c,3"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i][0] != want[i] {
			t.Errorf("rows[%d] = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestErrorPlot(t *testing.T) {
	rows := []conversion.Row{
		{Resistance: 100, Measured: 0.1, Calculated: 0, Error: 0.1},
		{Resistance: 138.5, Measured: 100, Calculated: 99.98, Error: 0.02},
		{Resistance: 5, Measured: -260, Err: rtd.ErrOutOfDomain},
	}

	var buf bytes.Buffer
	if err := ErrorPlot(&buf, rows); err != nil {
		t.Fatalf("ErrorPlot() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("ErrorPlot() did not produce a PNG")
	}

	err := ErrorPlot(&buf, rows[2:])
	if !errors.Is(err, ErrNothingToPlot) {
		t.Fatalf("ErrorPlot() error = %v, want %v", err, ErrNothingToPlot)
	}
}
