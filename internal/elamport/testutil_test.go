package elamport

import "time"

// timeoutAfterSeconds returns a channel that fires after s seconds, for
// bounding tests that wait on a goroutine to finish.
func timeoutAfterSeconds(s int) <-chan time.Time {
	return time.After(time.Duration(s) * time.Second)
}
