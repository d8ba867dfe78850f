package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specialistvlad/adcanvas/internal/node"
)

func TestCenteredOffsets(t *testing.T) {
	testCases := []struct {
		name    string
		n       int
		spacing float64
		want    []float64
	}{
		{name: "none", n: 0, spacing: 100, want: nil},
		{name: "single sibling is centered", n: 1, spacing: 100, want: []float64{0}},
		{name: "even count", n: 2, spacing: 100, want: []float64{-50, 50}},
		{name: "three", n: 3, spacing: 100, want: []float64{-100, 0, 100}},
		{name: "five", n: 5, spacing: 40, want: []float64{-80, -40, 0, 40, 80}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CenteredOffsets(tc.n, tc.spacing)
			assert.Equal(t, tc.want, got)

			sum := 0.0
			for _, v := range got {
				sum += v
			}
			assert.InDelta(t, 0, sum, 1e-9, "offsets must be symmetric around zero")
		})
	}
}

func TestFormatAgeRange(t *testing.T) {
	testCases := []struct {
		name string
		r    node.AgeRange
		want string
	}{
		{name: "both open", r: node.AgeRange{}, want: "All"},
		{name: "min open", r: node.AgeRange{Max: node.Age(24)}, want: "24-"},
		{name: "max open", r: node.AgeRange{Min: node.Age(65)}, want: "65+"},
		{name: "closed", r: node.AgeRange{Min: node.Age(18), Max: node.Age(34)}, want: "18-34"},
		{name: "zero bound is not open", r: node.AgeRange{Min: node.Age(0), Max: node.Age(12)}, want: "0-12"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAgeRange(tc.r))
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.BranchCount = 0
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.BranchKind = node.KindPreview
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.BranchSpacing = -1
	assert.Error(t, s.Validate())
}
