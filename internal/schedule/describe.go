package schedule

import "fmt"

var ordinals = [...]string{"", "1st", "2nd", "3rd", "4th", "5th"}

// Describe renders a rule as a human-readable phrase for dashboards and
// admin notices. Presentation only; it carries no scheduling authority.
func Describe(r Rule) string {
	switch r.Kind {
	case Weekly:
		return fmt.Sprintf("Every %s", r.Weekday)
	case WeeklyNth:
		ord := fmt.Sprintf("%d.", r.Nth)
		if r.Nth >= 1 && r.Nth < len(ordinals) {
			ord = ordinals[r.Nth]
		}
		return fmt.Sprintf("%s %s of each month", ord, r.Weekday)
	case Monthly:
		return fmt.Sprintf("Every month on day %d", r.Day)
	default:
		return ""
	}
}

// DescribeAll renders every rule in order.
func DescribeAll(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, Describe(r))
	}
	return out
}
