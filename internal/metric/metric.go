// Package metric holds the pure arithmetic shared by every aggregator. None
// of these functions fail; degenerate input yields a zero or nil result.
package metric

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Unknown labels a record whose categorical field is missing.
const Unknown = "Unknown"

// Percentage returns round(100*n/d), or 0 when d is not positive.
func Percentage(n, d float64) float64 {
	if d <= 0 || math.IsNaN(d) || math.IsNaN(n) || math.IsInf(n, 0) || math.IsInf(d, 0) {
		return 0
	}
	return math.Round(100 * n / d)
}

// Rate is Percentage over counts, computed in integers so halves always
// round away from zero.
func Rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	neg := part < 0
	if neg {
		part = -part
	}
	out := (200*part + whole) / (2 * whole)
	if neg {
		out = -out
	}
	return float64(out)
}

// SafeDivide returns n/d, or 0 when d is zero.
func SafeDivide(n, d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return 0
	}
	out := n / d
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

// Round2 rounds to two decimal places for presentation of averages.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DayDelta returns the whole days from from to to, truncated toward negative
// infinity. Nil when either bound is absent.
func DayDelta(from, to *time.Time) *int {
	if from == nil || to == nil {
		return nil
	}
	days := int(math.Floor(to.Sub(*from).Hours() / 24))
	return &days
}

// MonthKey buckets t by calendar month in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Ranked is one entry of a top-N ranking.
type Ranked struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopN ranks labels by count descending with ties broken by label ascending.
// A non-positive n returns the full ranking.
func TopN(counts map[string]int, n int) []Ranked {
	out := make([]Ranked, 0, len(counts))
	for label, count := range counts {
		out = append(out, Ranked{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Label returns the trimmed value, or Unknown when it is nil or blank.
func Label(v *string) string {
	if v == nil {
		return Unknown
	}
	return LabelOf(*v)
}

// LabelOf is Label for plain strings.
func LabelOf(v string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return Unknown
}
