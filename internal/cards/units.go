package cards

import (
	"regexp"
	"strconv"
)

// Plausible range for a units value. Numbers outside it are never
// accepted, whatever the source (window scan, replies, generative
// fallback).
const (
	MinUnits = 50
	MaxUnits = 15000
)

const unitsWindowRadius = 2

var (
	labeledUnitsPattern    = regexp.MustCompile(`(?i)(?:وحدة|وحده|وحدات|unit|value|units)\s*:?\s*(\d{2,4})\b`)
	standaloneUnitsPattern = regexp.MustCompile(`^\s*(\d{2,4})\s*$`)
	trailingUnitsPattern   = regexp.MustCompile(`(?i)(\d+)\s*(units|وحدة|وحده|وحدات|ميجا)`)
)

// InRange reports whether a parsed units value is plausible.
func InRange(units int) bool {
	return units >= MinUnits && units <= MaxUnits
}

// LocateUnits searches a symmetric window of two lines around the card
// line for an explicit units value. Labeled expressions win over the
// standalone-number heuristic; join-request lines are skipped. Returns
// "" when nothing in the window qualifies.
func LocateUnits(lines []string, cardLine int) string {
	start := cardLine - unitsWindowRadius
	if start < 0 {
		start = 0
	}

	end := cardLine + unitsWindowRadius + 1
	if end > len(lines) {
		end = len(lines)
	}

	for i := start; i < end; i++ {
		line := lines[i]

		if joinRequestPattern.MatchString(line) {
			continue
		}

		if m := labeledUnitsPattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}

		if m := standaloneUnitsPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && InRange(n) {
				return m[1]
			}
		}
	}

	return ""
}

// StandaloneUnits matches a message that is nothing but a 2-4 digit
// number in the plausible range. Used by the validation poll loop.
func StandaloneUnits(text string) (string, bool) {
	m := standaloneUnitsPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || !InRange(n) {
		return "", false
	}

	return m[1], true
}

// LabeledUnits extracts a number adjacent to a unit word anywhere in
// the text, range-checked.
func LabeledUnits(text string) (string, bool) {
	if m := labeledUnitsPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	m := trailingUnitsPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || !InRange(n) {
		return "", false
	}

	return m[1], true
}
