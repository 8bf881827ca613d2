package timeutil

import (
	"fmt"
	"time"
)

func NowUnix() int64 {
	return time.Now().Unix()
}

// FormatClock renders seconds as m:ss, e.g. 75.4 -> "1:15".
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
