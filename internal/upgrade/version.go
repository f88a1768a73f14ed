package upgrade

import (
	"fmt"
	"strconv"
	"strings"
)

// parseParts splits a dotted version into integers. Any non-integer
// component fails the parse; there is no prefix stripping.
func parseParts(v string) ([]int, error) {
	fields := strings.Split(strings.TrimSpace(v), ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("version %q: component %q is not a number", v, f)
		}
		parts[i] = n
	}
	return parts, nil
}

// Compare orders two dotted versions component-wise, zero-padding the
// shorter one. It returns -1, 0 or 1.
func Compare(a, b string) (int, error) {
	pa, err := parseParts(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseParts(b)
	if err != nil {
		return 0, err
	}

	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
	}
	return 0, nil
}

// NeedsUpdate reports whether current is older than latest. When either
// version cannot be parsed an update is recommended.
func NeedsUpdate(current, latest string) bool {
	cmp, err := Compare(current, latest)
	if err != nil {
		return true
	}
	return cmp < 0
}
