// Package report renders conversion outputs for people: spreadsheets and an
// error-vs-temperature scatter plot.
package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes records to a single-sheet workbook. Cells that parse as
// numbers are stored as numbers.
func WriteXLSX(w io.Writer, records [][]string) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(0)
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to address row %d", i+1)
		}
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return pkgerrors.Wrapf(err, "failed to write row %d", i+1)
		}
	}

	if err := f.Write(w); err != nil {
		return pkgerrors.Wrapf(err, "failed to write workbook")
	}
	return nil
}

// CSVToXLSX converts a CSV output file into a workbook.
func CSVToXLSX(w io.Writer, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse csv")
	}
	return WriteXLSX(w, records)
}

// Concatenate joins the lines of several files into one workbook, one line
// per row in a single column, without a header.
func Concatenate(w io.Writer, readers ...io.Reader) error {
	var records [][]string
	for i, r := range readers {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			records = append(records, []string{sc.Text()})
		}
		if err := sc.Err(); err != nil {
			return pkgerrors.Wrapf(err, "failed to read input %d", i)
		}
	}
	return WriteXLSX(w, records)
}

func cellValue(s string) interface{} {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}
