package rtd

import (
	"errors"
	"math"
	"testing"
)

func TestFindTemperatureCalibrationPoint(t *testing.T) {
	got, err := FindTemperature(100.0, 100.0)
	if err != nil {
		t.Fatalf("FindTemperature() error = %v", err)
	}
	if got != 0.0 {
		t.Fatalf("FindTemperature() = %v, want exactly 0", got)
	}

	// Within tolerance of R0 is still the calibration point.
	got, err = FindTemperature(100.0+5e-7, 100.0)
	if err != nil || got != 0.0 {
		t.Fatalf("FindTemperature() = %v, %v, want 0, nil", got, err)
	}
}

func TestFindTemperatureRoundTrip(t *testing.T) {
	for _, r0 := range []float64{100, 500, 1000} {
		for temp := -50.0; temp <= 150.0; temp += 0.25 {
			rt := Resistance(temp, r0)
			got, err := FindTemperature(rt, r0)
			if err != nil {
				t.Fatalf("FindTemperature(%v, %v) error = %v", rt, r0, err)
			}
			if math.Abs(got-temp) > 1e-4 {
				t.Fatalf("FindTemperature(R(%v), %v) = %v, want within 1e-4", temp, r0, got)
			}
		}
	}
}

func TestFindTemperatureKnownValues(t *testing.T) {
	tests := []struct {
		name string
		rt   float64
		want float64
	}{
		{name: "boiling point", rt: 138.5055, want: 100},
		{name: "200 °C", rt: 175.856, want: 200},
		{name: "-100 °C", rt: 60.2558, want: -100},
		{name: "-200 °C", rt: 18.5201, want: -200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindTemperature(tt.rt, DefaultR0)
			if err != nil {
				t.Fatalf("FindTemperature() error = %v", err)
			}
			if math.Abs(got-tt.want) > 5e-3 {
				t.Errorf("FindTemperature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindTemperatureFailures(t *testing.T) {
	tests := []struct {
		name    string
		rt      float64
		r0      float64
		wantErr error
	}{
		{name: "far below floor", rt: 5.0, r0: 100, wantErr: ErrOutOfDomain},
		{name: "at floor", rt: 9.0, r0: 100, wantErr: ErrOutOfDomain},
		{name: "negative resistance", rt: -1, r0: 100, wantErr: ErrOutOfDomain},
		{name: "NaN reading", rt: math.NaN(), r0: 100, wantErr: ErrOutOfDomain},
		{name: "infinite reading", rt: math.Inf(1), r0: 100, wantErr: ErrOutOfDomain},
		{name: "zero reference", rt: 0, r0: 0, wantErr: ErrOutOfDomain},
		{name: "negative reference", rt: 50, r0: -100, wantErr: ErrOutOfDomain},
		// The positive branch peaks near 761 Ω, so there is no root above it.
		{name: "above quadratic peak", rt: 1000, r0: 100, wantErr: ErrNonConvergent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindTemperature(tt.rt, tt.r0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FindTemperature() = %v, %v, want error %v", got, err, tt.wantErr)
			}
		})
	}
}

func TestSelectBranch(t *testing.T) {
	tests := []struct {
		rt   float64
		want Branch
	}{
		{rt: 100.0001, want: BranchPositive},
		{rt: 390, want: BranchPositive},
		{rt: 100, want: BranchNegative},
		{rt: 9.0001, want: BranchNegative},
		{rt: 9, want: BranchOutOfDomain},
		{rt: 0, want: BranchOutOfDomain},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := SelectBranch(tt.rt, DefaultR0); got != tt.want {
				t.Errorf("SelectBranch(%v) = %v, want %v", tt.rt, got, tt.want)
			}
		})
	}
}

func TestResistance(t *testing.T) {
	if got := Resistance(0, DefaultR0); got != DefaultR0 {
		t.Errorf("Resistance(0) = %v, want %v", got, DefaultR0)
	}
	if got := Resistance(100, DefaultR0); math.Abs(got-138.5055) > 1e-3 {
		t.Errorf("Resistance(100) = %v, want 138.5055", got)
	}
	if got := Resistance(-100, DefaultR0); math.Abs(got-60.2558) > 1e-3 {
		t.Errorf("Resistance(-100) = %v, want 60.2558", got)
	}
}
