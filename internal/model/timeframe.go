package model

import (
	"slices"
	"strings"
)

const (
	TimeframeAll               = "all"
	TimeframeThirtyDays        = "thirty-days"
	TimeframeThreeMonths       = "three-months"
	TimeframeSixMonths         = "six-months"
	TimeframeMoreThanSixMonths = "more-than-six-months"
)

var timeframeLabels = map[string]string{
	TimeframeAll:               "All Time",
	TimeframeThirtyDays:        "Last 30 Days",
	TimeframeThreeMonths:       "Last 3 Months",
	TimeframeSixMonths:         "Last 6 Months",
	TimeframeMoreThanSixMonths: "More than 6 Months",
}

// TimeframePriority orders timeframes from most to least recent.
var TimeframePriority = []string{
	TimeframeThirtyDays,
	TimeframeThreeMonths,
	TimeframeSixMonths,
	TimeframeMoreThanSixMonths,
	TimeframeAll,
}

// TimeframeLabel returns the display label for a timeframe id.
// Unrecognized ids are displayed as-is.
func TimeframeLabel(id string) string {
	if l, ok := timeframeLabels[id]; ok {
		return l
	}
	return id
}

// NormalizeTimeframe maps the loose spellings people type on a command line
// ("30d", "90", "6mo", ">6mo", "all-time") to canonical timeframe ids.
// Anything unrecognized is returned lower-cased and dash-joined, so
// server-side timeframes this client does not know about still pass through.
func NormalizeTimeframe(s string) string {
	tf := strings.ToLower(strings.TrimSpace(s))
	tf = strings.ReplaceAll(tf, " ", "-")

	switch tf {
	case "30", "30days", "30-days", "thirty", "thirtydays", "thirty-days", "30d", "1m":
		return TimeframeThirtyDays
	case "90", "90days", "90-days", "three", "threemonths", "three-months", "3months", "3-months", "3mo", "3m", "90d":
		return TimeframeThreeMonths
	case "180", "180days", "180-days", "six", "sixmonths", "six-months", "6months", "6-months", "6mo", "6m":
		return TimeframeSixMonths
	case "all", "alltime", "all-time", "everything":
		return TimeframeAll
	case "more-than-six-months", "morethan6months", "more-than-6-months", ">6mo", ">6months":
		return TimeframeMoreThanSixMonths
	}
	return tf
}

// ContainsTimeframe reports whether tf is one of list.
func ContainsTimeframe(list []string, tf string) bool {
	return slices.Contains(list, tf)
}
