package greenops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{18248, "18,248"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name      string
		in        float64
		precision int
		want      string
	}{
		{"two decimals", 8.634, 2, "8.63"},
		{"separators", 1234.567, 2, "1,234.57"},
		{"zero precision rounds", 2.5, 0, "3"},
		{"negative", -3.1, 1, "-3.1"},
		{"negative below one keeps sign", -0.25, 2, "-0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in, tt.precision))
		})
	}
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+2.63", FormatSigned(2.63, 2))
	assert.Equal(t, "-1.50", FormatSigned(-1.5, 2))
	assert.Equal(t, "0.00", FormatSigned(0, 2))
}

func TestFormatLarge(t *testing.T) {
	assert.Equal(t, "~1.5 billion", FormatLarge(1_500_000_000))
	assert.Equal(t, "~2.4 million", FormatLarge(2_400_000))
	assert.Equal(t, "12,345", FormatLarge(12_345))
}

func TestFormatCarbon(t *testing.T) {
	assert.Equal(t, "8.63 kg CO₂e", FormatCarbon(8.63, "kg", 2))
	assert.Equal(t, "3.15 t CO₂e", FormatCarbon(3149.95, "t", 2))
	assert.Equal(t, "8,630 g CO₂e", FormatCarbon(8.63, "g", 0))
	assert.Equal(t, "8.63 kg CO₂e", FormatCarbon(8.63, "furlong", 2))
}
