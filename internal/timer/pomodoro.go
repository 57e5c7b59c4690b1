package timer

import "time"

// DetectPomodoro returns the number of completed intervals of the given length
// contained in elapsed, and how many of them are newer than the lastNotified
// watermark. crossed is zero when nothing new should be announced.
func DetectPomodoro(elapsed, length time.Duration, lastNotified int) (count, crossed int) {
	if length <= 0 || elapsed <= 0 {
		return 0, 0
	}
	count = int(elapsed / length)
	if count > lastNotified {
		crossed = count - lastNotified
	}
	return count, crossed
}
