package faucet

import (
	"fmt"
	"math"
	"time"
)

// formatWait renders a remaining cooldown in its largest sensible unit:
// seconds under a minute, minutes under an hour, otherwise hours and minutes
// with the minutes part omitted when zero.
func formatWait(d time.Duration) string {
	if d < time.Minute {
		secs := int(math.Ceil(d.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return plural(secs, "sec")
	}

	if d < time.Hour {
		return plural(int(d.Minutes()), "min")
	}

	hours := int(d.Hours())
	mins := int((d % time.Hour).Minutes())
	if mins == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(mins, "min")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
