package intake

import (
	"regexp"
	"strconv"
)

// The assistant marks intake progress with a Hebrew step marker, e.g.
// "שלב 3 מתוך 8". TrackStep is the single source of truth for progress.
var stepMarkerRe = regexp.MustCompile(`שלב\s*:?\s*(\d+)`)

// TrackStep scans assistant text for the step marker and returns the
// indicated step clamped to [1, maxSteps]. When no marker is found, or the
// number fails to parse, it returns 1. It never fails and is safe to run on
// partial streamed text.
func TrackStep(text string, maxSteps int) int {
	if maxSteps < 1 {
		maxSteps = 1
	}

	matches := stepMarkerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 1
	}

	// The last marker in the message reflects the latest progress.
	raw := matches[len(matches)-1][1]
	step, err := strconv.Atoi(raw)
	if err != nil || step < 1 {
		return 1
	}
	if step > maxSteps {
		return maxSteps
	}
	return step
}
