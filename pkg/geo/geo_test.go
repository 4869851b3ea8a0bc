package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0},
			want: 0,
		},
		{
			name: "Copenhagen to Gothenburg",
			p1:   Point{Lat: 55.6761, Lon: 12.5683},
			p2:   Point{Lat: 57.7089, Lon: 11.9746},
			want: 229000, // Approx 229km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111319, // Approx 111km
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			margin := tt.want * 0.01
			if tt.want == 0 {
				if got != 0 {
					t.Errorf("Distance() = %v, want 0", got)
				}
				return
			}
			if math.Abs(got-tt.want) > margin {
				t.Errorf("Distance() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"Origin", Point{0, 0}, true},
		{"Corners", Point{90, 180}, true},
		{"Negative Corners", Point{-90, -180}, true},
		{"Lat Too High", Point{90.0001, 0}, false},
		{"Lon Too Low", Point{0, -180.5}, false},
		{"NaN Lat", Point{math.NaN(), 0}, false},
		{"NaN Lon", Point{0, math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
			err := tt.p.Validate()
			if tt.want && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if !tt.want && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("Validate() = %v, want ErrInvalidPosition", err)
			}
		})
	}
}

func TestNormalizeLon(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		180:  -180,
		-180: -180,
		190:  -170,
		-190: 170,
	}
	for in, want := range tests {
		if got := NormalizeLon(in); got != want {
			t.Errorf("NormalizeLon(%v) = %v, want %v", in, got, want)
		}
	}
}
