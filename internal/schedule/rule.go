// Package schedule evaluates calendar recurrence rules for the daily run.
//
// Rules come from message definitions as short uppercase tokens:
//
//	"SUNDAY"      every Sunday
//	"MONDAY-2"    the 2nd Monday of each month
//	"MONTHLY-07"  the 7th of each month
//
// Tokens are parsed once at configuration load; evaluation is pure and works
// on a civil date that must already be expressed in the broadcaster's fixed
// timezone.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the closed set of rule variants.
type Kind int

const (
	Weekly Kind = iota
	WeeklyNth
	Monthly
)

// Rule is one parsed recurrence pattern.
type Rule struct {
	Kind    Kind
	Weekday time.Weekday // Weekly and WeeklyNth
	Nth     int          // WeeklyNth: 1..5, 1-based occurrence within the month
	Day     int          // Monthly: day of month, no clamping for short months
}

var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// Parse converts raw pattern tokens into rules.
// Unrecognized tokens are skipped: they never match and never error.
func Parse(tokens []string) []Rule {
	rules := make([]Rule, 0, len(tokens))
	for _, tok := range tokens {
		if r, ok := parseToken(tok); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

func parseToken(tok string) (Rule, bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(tok)), "-")
	if len(parts) == 0 || parts[0] == "" {
		return Rule{}, false
	}

	if parts[0] == "MONTHLY" {
		if len(parts) != 2 {
			return Rule{}, false
		}
		day, err := strconv.Atoi(parts[1])
		if err != nil || day < 1 || day > 31 {
			return Rule{}, false
		}
		return Rule{Kind: Monthly, Day: day}, true
	}

	wd, ok := weekdayNames[parts[0]]
	if !ok {
		return Rule{}, false
	}
	switch len(parts) {
	case 1:
		return Rule{Kind: Weekly, Weekday: wd}, true
	case 2:
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 || n > 5 {
			return Rule{}, false
		}
		return Rule{Kind: WeeklyNth, Weekday: wd, Nth: n}, true
	default:
		return Rule{}, false
	}
}

// DueToday reports whether any rule matches the civil date of now.
// An empty rule list never matches.
func DueToday(rules []Rule, now time.Time) bool {
	day := now.Day()
	wd := now.Weekday()
	for _, r := range rules {
		switch r.Kind {
		case Weekly:
			if wd == r.Weekday {
				return true
			}
		case WeeklyNth:
			if wd == r.Weekday && nthOccurrence(day) == r.Nth {
				return true
			}
		case Monthly:
			if day == r.Day {
				return true
			}
		}
	}
	return false
}

// nthOccurrence returns the 1-based occurrence of today's weekday within the
// month; day 1..7 is the 1st occurrence, 8..14 the 2nd, and so on.
func nthOccurrence(day int) int {
	return (day-1)/7 + 1
}
