package support

import "time"

// Clock returns the current time. Handlers fall back to time.Now when unset.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
