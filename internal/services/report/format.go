package report

import (
	"fmt"
	"strings"
	"time"

	"herald/internal/campaign"
)

// formatNotice renders the HTML summary sent to the administrator.
func formatNotice(rep campaign.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>Message Delivery Report</b>\n")
	fmt.Fprintf(&b, "<b>Message ID:</b> %s\n", rep.MessageID)
	fmt.Fprintf(&b, "<b>Sent at:</b> %s\n\n", rep.At.Format(time.RFC3339))

	fmt.Fprintf(&b, "<b>Total Users:</b> %d\n", rep.Total)
	fmt.Fprintf(&b, "<b>Successfully Reached:</b> %d (%.1f%%)\n", rep.Success, rep.SuccessPct)
	fmt.Fprintf(&b, "<b>Failed:</b> %d\n\n", rep.Failed)

	fmt.Fprintf(&b, "<b>Language Breakdown:</b>\n")
	fmt.Fprintf(&b, "Italian: %d (%.1f%%)\n", rep.ItalianReached, rep.ItalianPct)
	fmt.Fprintf(&b, "Spanish: %d (%.1f%%)\n", rep.SpanishReached, rep.SpanishPct)
	fmt.Fprintf(&b, "Other: %d (%.1f%%)", rep.OtherReached, rep.OtherPct)

	return b.String()
}
