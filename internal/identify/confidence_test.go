package identify

import (
	"math"
	"testing"

	"waxcrate/internal/records"
)

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestScoreWeights(t *testing.T) {
	cases := []struct {
		name   string
		fields records.Fields
		want   float64
	}{
		{"empty", records.Fields{}, 0},
		{"artist only", records.Fields{Artist: "Miles Davis"}, 0.3},
		{"album only", records.Fields{Album: "Kind of Blue"}, 0.3},
		{"title counts as album", records.Fields{Title: "So What"}, 0.3},
		{"identity pair", records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"}, 0.6},
		{"identity plus label", records.Fields{Artist: "A", Album: "B", Label: "Columbia"}, 0.8},
		{"identity label year", records.Fields{Artist: "A", Album: "B", Label: "C", Year: "1959"}, 0.9},
		{"everything", records.Fields{Artist: "A", Album: "B", Label: "C", Year: "1959", CatalogNumber: "CL 1355"}, 1.0},
		{"whitespace is absent", records.Fields{Artist: "  ", Album: "\t"}, 0},
	}
	for _, tc := range cases {
		if got := Score(tc.fields); !closeTo(got, tc.want) {
			t.Errorf("%s: Score = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreNeverExceedsOne(t *testing.T) {
	fields := records.Fields{
		Artist: "A", Album: "B", Title: "T", Label: "C",
		Year: "1959", CatalogNumber: "CL 1355", Country: "US", Format: "LP",
	}
	if got := Score(fields); !closeTo(got, 1.0) {
		t.Fatalf("Score = %v, want cap at 1.0", got)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	fields := records.Fields{Artist: "Nina Simone", Label: "Philips"}
	first := Score(fields)
	for i := 0; i < 10; i++ {
		if got := Score(fields); got != first {
			t.Fatalf("Score changed between calls: %v then %v", first, got)
		}
	}
}
