package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrentbot/internal/apperrors"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "megabytes", input: "12 MB", want: 12 * 1024 * 1024},
		{name: "binary gibibytes", input: "1.5 GiB", want: 1.5 * 1024 * 1024 * 1024},
		{name: "kibibytes", input: "100.0 KiB", want: 100 * 1024},
		{name: "plain bytes", input: "512 Bytes", want: 512},
		{name: "terabytes", input: "2 TB", want: 2 * 1024 * 1024 * 1024 * 1024},
		{name: "surrounding whitespace", input: "  3 MiB\n", want: 3 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, input := range []string{"bad", "", "12", "12 parsecs", "one MB", "1 2 MB", "N/A"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrParse)
		})
	}
}
