package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser accepts standard 5 field expressions, an optional leading
// seconds field and descriptors such as @daily.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses expr evaluated in the tz location.
func ParseSchedule(expr, tz string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCron)
	}
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return nil, fmt.Errorf("%w: timezone prefix not allowed in %q", ErrInvalidCron, expr)
	}
	if _, err := LoadLocation(tz); err != nil {
		return nil, err
	}
	sched, err := CronParser.Parse(ZonedSpec(expr, tz))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCron, expr, err)
	}
	return sched, nil
}

// ZonedSpec prefixes expr with CRON_TZ so the cron runner evaluates it in tz.
func ZonedSpec(expr, tz string) string {
	if tz == "" {
		return expr
	}
	return "CRON_TZ=" + tz + " " + strings.TrimSpace(expr)
}

// LoadLocation resolves an IANA timezone name.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}
