package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"torrentbot/internal/apperrors"
)

// sizeUnits maps the units shown by the index to byte multipliers.
// Decimal-looking units are binary too; the index only ever shows binary sizes.
var sizeUnits = map[string]float64{
	"B":     1,
	"Bytes": 1,
	"KB":    1 << 10,
	"KiB":   1 << 10,
	"MB":    1 << 20,
	"MiB":   1 << 20,
	"GB":    1 << 30,
	"GiB":   1 << 30,
	"TB":    1 << 40,
	"TiB":   1 << 40,
}

// ParseSize converts a size such as "12.3 MiB" to a byte count.
func ParseSize(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("size %q is not \"<number> <unit>\": %w", s, apperrors.ErrParse)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("size %q has invalid number: %w", s, apperrors.ErrParse)
	}

	multiplier, ok := sizeUnits[fields[1]]
	if !ok {
		return 0, fmt.Errorf("size %q has unknown unit %q: %w", s, fields[1], apperrors.ErrParse)
	}

	return value * multiplier, nil
}
