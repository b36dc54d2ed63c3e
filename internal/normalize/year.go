// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strconv"

	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var yearPattern = regexp.MustCompile(`(?:^|[^0-9])(1[0-9]{3}|20[0-9]{2}|2100)(?:[^0-9]|$)`)

// ParseYear finds the first plausible four-digit year in s ("c1998.",
// "[2001?]", "2005-03-01"). Anything else is YearUnknown.
func ParseYear(s string) types.Year {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return types.YearUnknown
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return types.YearUnknown
	}
	return YearFromInt(n)
}

// YearFromInt maps an integer year to a Year, rejecting implausible values.
func YearFromInt(n int) types.Year {
	if n < 1000 || n > 2100 {
		return types.YearUnknown
	}
	return types.Year(n)
}
