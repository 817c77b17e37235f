// Package dataset reads calibration readings from delimited text files and
// writes conversion results back out in the same format.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/polyfit"
)

// AllowedExtensions are the file extensions accepted for upload.
var AllowedExtensions = []string{"txt", "csv"}

// Header is the header row of an output file.
var Header = []string{
	"Resistance (Ohms)",
	"Measured Temperature (°C)",
	"Calculated Temperature (°C)",
	"Error (°C)",
}

var delimiters = map[string]rune{
	",":         ',',
	"comma":     ',',
	";":         ';',
	"semicolon": ';',
	"\t":        '\t',
	`\t`:        '\t',
	"tab":       '\t',
	"|":         '|',
	"pipe":      '|',
}

func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, e := range AllowedExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// ParseDelimiter accepts a literal delimiter or its name.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if d, ok := delimiters[strings.ToLower(s)]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", s)
}

// Read parses a delimited file with a header row. Column 0 is resistance and
// column 1 is the measured temperature; other columns are ignored. Input that
// is not valid UTF-8 is decoded as Latin-1.
func Read(r io.Reader, delim rune) ([]polyfit.Point, error) {
	records, err := readRecords(r, delim)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New("file is empty")
	}

	points := make([]polyfit.Point, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) < 2 {
			return nil, pkgerrors.Errorf("line %d: expected at least 2 columns, got %d", line, len(rec))
		}
		res, err := parseFloat(rec[0])
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "line %d: invalid resistance", line)
		}
		temp, err := parseFloat(rec[1])
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "line %d: invalid temperature", line)
		}
		points = append(points, polyfit.Point{R: res, T: temp})
	}

	return points, nil
}

// Write writes rows as CSV under Header. Rows that failed to convert leave
// the calculated and error cells empty.
func Write(w io.Writer, rows []conversion.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return pkgerrors.Wrapf(err, "failed to write header")
	}
	for _, r := range rows {
		rec := []string{formatFloat(r.Resistance), formatFloat(r.Measured), "", ""}
		if r.OK() {
			rec[2] = formatFloat(r.Calculated)
			rec[3] = formatFloat(r.Error)
		}
		if err := cw.Write(rec); err != nil {
			return pkgerrors.Wrapf(err, "failed to write row")
		}
	}
	cw.Flush()
	return pkgerrors.Wrapf(cw.Error(), "failed to flush csv")
}

// ReadOutput parses a file produced by Write. Rows with empty calculated
// cells come back with Err set to ErrNotCalculated.
func ReadOutput(r io.Reader) ([]conversion.Row, error) {
	records, err := readRecords(r, ',')
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New("file is empty")
	}

	rows := make([]conversion.Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) < len(Header) {
			return nil, pkgerrors.Errorf("line %d: expected %d columns, got %d", line, len(Header), len(rec))
		}
		var row conversion.Row
		if row.Resistance, err = parseFloat(rec[0]); err != nil {
			return nil, pkgerrors.Wrapf(err, "line %d", line)
		}
		if row.Measured, err = parseFloat(rec[1]); err != nil {
			return nil, pkgerrors.Wrapf(err, "line %d", line)
		}
		if strings.TrimSpace(rec[2]) == "" {
			row.Err = ErrNotCalculated
		} else {
			if row.Calculated, err = parseFloat(rec[2]); err != nil {
				return nil, pkgerrors.Wrapf(err, "line %d", line)
			}
			if row.Error, err = parseFloat(rec[3]); err != nil {
				return nil, pkgerrors.Wrapf(err, "line %d", line)
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ErrNotCalculated marks an output row that has no calculated temperature.
var ErrNotCalculated = pkgerrors.New("no calculated temperature")

func readRecords(r io.Reader, delim rune) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read input")
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		b, err = charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to decode input as latin1")
		}
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to parse delimited input")
	}
	return records, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
