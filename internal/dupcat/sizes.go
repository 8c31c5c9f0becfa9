package dupcat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSize parses a size bound such as "500", "64k" or "2g".
// Suffixes k, m, g and t are powers of 1024 and case-insensitive.
// An empty string parses to 0 (no bound).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch strings.ToLower(s[len(s)-1:]) {
	case "k":
		multiplier = 1 << 10
	case "m":
		multiplier = 1 << 20
	case "g":
		multiplier = 1 << 30
	case "t":
		multiplier = 1 << 40
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", s)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return n * multiplier, nil
}
