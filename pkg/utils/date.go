package utils

import "time"

// Now is the clock used by services. Tests replace it to freeze time.
var Now = func() time.Time {
	return time.Now().UTC()
}

// DaysAgo returns the instant n days before Now.
func DaysAgo(n int) time.Time {
	return Now().AddDate(0, 0, -n)
}
