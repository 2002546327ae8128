package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const timeLayout = "2006-01-02 15:04:05"

// GenerateReport renders a text report of the last days days.
func (l *ActionLog) GenerateReport(ctx context.Context, days int) (string, error) {
	stats, err := l.Statistics(ctx, days)
	if err != nil {
		return "", err
	}
	return FormatReport(stats, l.now().Format(timeLayout)), nil
}

// FormatReport renders stats. generated is printed verbatim in the header.
func FormatReport(stats *Statistics, generated string) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	sub := strings.Repeat("-", 30)

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "SCHEDULE HISTORY REPORT (Last %d days)\n", stats.Days)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Generated: %s\n\n", generated)

	fmt.Fprintf(&b, "OVERALL STATISTICS\n%s\n", sub)
	fmt.Fprintf(&b, "Total Actions: %d\n", stats.TotalActions)
	fmt.Fprintf(&b, "Successful: %d\n", stats.SuccessfulActions)
	fmt.Fprintf(&b, "Failed: %d\n", stats.FailedActions)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n\n", stats.SuccessRate)

	if len(stats.ActionsByApp) > 0 {
		fmt.Fprintf(&b, "BY APPLICATION\n%s\n", sub)
		names := make([]string, 0, len(stats.ActionsByApp))
		for name := range stats.ActionsByApp {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := stats.ActionsByApp[name]
			fmt.Fprintf(&b, "%s:\n  Turn On: %d\n  Turn Off: %d\n  Failures: %d\n\n", name, s.TurnOn, s.TurnOff, s.Failures)
		}
	}

	if len(stats.RecentFailures) > 0 {
		fmt.Fprintf(&b, "RECENT FAILURES\n%s\n", sub)
		for _, f := range stats.RecentFailures {
			fmt.Fprintf(&b, "%s - %s (%s)\n", f.Timestamp.Local().Format(timeLayout), f.AppName, f.Action)
			if f.Error != "" {
				fmt.Fprintf(&b, "   Error: %s\n", f.Error)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
