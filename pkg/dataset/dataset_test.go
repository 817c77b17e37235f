package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/rtd"
)

var pt100CSV = []byte(`Resistance,Temperature
100,0
119.397,50
138.5055,100
`)

// Header "Température" in Latin-1: 0xE9 is é and not valid UTF-8 on its own.
var latin1CSV = []byte("R;Temp\xe9rature\n80.306;-50\n100;0\n")

func TestRead(t *testing.T) {
	points, err := Read(bytes.NewReader(pt100CSV), ',')
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Read() returned %d points, want 3", len(points))
	}
	if points[2].R != 138.5055 || points[2].T != 100 {
		t.Errorf("points[2] = %+v", points[2])
	}
}

func TestReadLatin1(t *testing.T) {
	points, err := Read(bytes.NewReader(latin1CSV), ';')
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(points) != 2 || points[0].R != 80.306 || points[0].T != -50 {
		t.Fatalf("Read() = %+v", points)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "empty"},
		{name: "one column", input: "R\n100\n", want: "line 2"},
		{name: "bad number", input: "R,T\n100,0\nabc,1\n", want: "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), ',')
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Read() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestWriteReadOutput(t *testing.T) {
	rows := []conversion.Row{
		{Resistance: 100, Measured: 0.05, Calculated: 0, Error: 0.05},
		{Resistance: 5, Measured: -260, Err: rtd.ErrOutOfDomain},
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(Header, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "5,-260,," {
		t.Errorf("failed row = %q, want %q", lines[2], "5,-260,,")
	}

	got, err := ReadOutput(&buf)
	if err != nil {
		t.Fatalf("ReadOutput() error = %v", err)
	}
	if len(got) != 2 || got[0].Error != 0.05 || !got[0].OK() {
		t.Fatalf("ReadOutput() = %+v", got)
	}
	if !errors.Is(got[1].Err, ErrNotCalculated) {
		t.Errorf("row 1 Err = %v, want %v", got[1].Err, ErrNotCalculated)
	}
}

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "data.csv", want: true},
		{name: "DATA.TXT", want: true},
		{name: "archive.tar.csv", want: true},
		{name: "report.xlsx", want: false},
		{name: "csv", want: false},
		{name: "", want: false},
	}
	for _, tt := range tests {
		if got := AllowedFile(tt.name); got != tt.want {
			t.Errorf("AllowedFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: ','},
		{in: ";", want: ';'},
		{in: "Tab", want: '\t'},
		{in: `\t`, want: '\t'},
		{in: "pipe", want: '|'},
		{in: "::", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
