package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/papercomputeco/verity/pkg/fact"
)

var (
	numberPattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s*([a-z]*)$`)

	currencyStripper = strings.NewReplacer("$", "", "£", "", "€", "", ",", "")

	magnitudes = map[string]float64{
		"":         1,
		"k":        1e3,
		"thousand": 1e3,
		"m":        1e6,
		"mm":       1e6,
		"mn":       1e6,
		"million":  1e6,
		"b":        1e9,
		"bn":       1e9,
		"billion":  1e9,
	}
)

// Compatible reports whether two values agree: equal after case and
// whitespace normalization, numerically equal within tolerance when both
// parse as numbers, or (for non-numeric values) one contains the other.
func (m *Matcher) Compatible(a, b string) bool {
	na, aNumeric := ParseNumber(a)
	nb, bNumeric := ParseNumber(b)
	if aNumeric && bNumeric {
		// TODO: product review of whether numeric values should also agree
		// by substring ("10" inside "100") like text values do.
		return withinTolerance(na, nb, m.numericTolerance)
	}

	sa, sb := fact.NormalizeText(a), fact.NormalizeText(b)
	if sa == sb {
		return true
	}
	if sa == "" || sb == "" {
		return false
	}
	return strings.Contains(sa, sb) || strings.Contains(sb, sa)
}

// ParseNumber canonicalizes a numeric or currency value into its magnitude.
// Currency symbols ($ £ €) and thousands separators are dropped and k/m/b
// suffixes (or thousand/million/billion) scale the number:
//
//	"$3.2M"       -> 3200000
//	"£1,250k"     -> 1250000
//	"2.5 billion" -> 2500000000
//
// The second return value is false when s is not a number.
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.TrimSpace(currencyStripper.Replace(strings.ToLower(s)))
	if cleaned == "" {
		return 0, false
	}

	groups := numberPattern.FindStringSubmatch(cleaned)
	if groups == nil {
		return 0, false
	}

	scale, ok := magnitudes[groups[2]]
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, false
	}

	return n * scale, true
}

func withinTolerance(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	largest := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tolerance*largest
}
