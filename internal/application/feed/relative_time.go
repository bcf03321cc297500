package feed

import (
	"fmt"
	"time"
)

// RelativeTime renders how long ago createdAt was, relative to now. It is a
// pure function: callers pass wall-clock now so the result tracks the
// passage of time instead of being memoized at fetch time.
//
// Buckets: under a minute "Just now"; under an hour "{m}m ago"; under a day
// "1h ago" for the first hour then "{h}hr ago"; under two days "Yesterday";
// then "{d} days ago" (singular-safe).
func RelativeTime(createdAt, now time.Time) string {
	secs := int(now.Sub(createdAt).Seconds())
	switch {
	case secs < 60:
		return "Just now"
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		h := secs / 3600
		if h == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dhr ago", h)
	case secs < 172800:
		return "Yesterday"
	default:
		d := secs / 86400
		if d == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", d)
	}
}
