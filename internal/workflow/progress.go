package workflow

import "math"

// ComputeProgress projects step statuses onto an integer percentage of
// terminal steps. Zero configured steps yields 0: a deliverable with no
// workflow never unlocks.
func ComputeProgress(statuses []Status) int {
	if len(statuses) == 0 {
		return 0
	}
	terminal := 0
	for _, s := range statuses {
		if s.Terminal() {
			terminal++
		}
	}
	return int(math.Round(100 * float64(terminal) / float64(len(statuses))))
}

// SelectActionable returns the index of the first step the submitter should
// work on next, or -1 when every step is locked, terminal, or awaiting
// review.
func SelectActionable(statuses []Status) int {
	for i, s := range statuses {
		if s.Actionable() {
			return i
		}
	}
	return -1
}

// IsUploadUnlocked is the sole cross-step gate: the deliverable-level upload
// action opens only at full progress.
func IsUploadUnlocked(progress int) bool {
	return progress == 100
}
