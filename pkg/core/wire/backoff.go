package wire

import "time"

// delayFor returns the reconnect delay before the given attempt
// (zero-based): base doubled per attempt, capped at max.
func delayFor(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
