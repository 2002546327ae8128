package history

const maxRecentFailures = 10

// Compute tallies records, which must be newest first.
func Compute(records []ActionRecord) *Statistics {
	stats := &Statistics{
		ActionsByApp:   make(map[string]AppStats),
		RecentFailures: make([]ActionRecord, 0),
	}
	for _, r := range records {
		stats.TotalActions++
		app := stats.ActionsByApp[r.AppName]
		if r.Success {
			stats.SuccessfulActions++
			if r.Action == ActionTurnOn {
				app.TurnOn++
			} else {
				app.TurnOff++
			}
		} else {
			stats.FailedActions++
			app.Failures++
			if len(stats.RecentFailures) < maxRecentFailures {
				stats.RecentFailures = append(stats.RecentFailures, r)
			}
		}
		stats.ActionsByApp[r.AppName] = app
	}

	stats.SuccessRate = 100
	if stats.TotalActions > 0 {
		stats.SuccessRate = float64(stats.SuccessfulActions) / float64(stats.TotalActions) * 100
	}
	return stats
}
