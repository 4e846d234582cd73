// Package metrics converts keystroke counts and elapsed time into typing metrics.
package metrics

import (
	"fmt"
	"math"
)

// CharsPerWord is the standard typing convention for one word.
const CharsPerWord = 5

// ComputeWPM returns words per minute for correctChars typed over elapsedSeconds.
// Non-positive elapsed time yields 0. The result is not clamped.
func ComputeWPM(correctChars int, elapsedSeconds float64) int {
	if elapsedSeconds <= 0 || correctChars <= 0 {
		return 0
	}
	words := float64(correctChars) / CharsPerWord
	minutes := elapsedSeconds / 60
	return int(math.Round(words / minutes))
}

// ComputeAccuracy returns the percentage of typed characters that were correct.
// Nothing typed counts as 100.
func ComputeAccuracy(totalTyped, correctChars int) int {
	if totalTyped <= 0 {
		return 100
	}
	if correctChars < 0 {
		correctChars = 0
	}
	if correctChars > totalTyped {
		correctChars = totalTyped
	}
	return int(math.Round(float64(correctChars) / float64(totalTyped) * 100))
}

// FormatDuration renders seconds as M:SS, or as "Ns" below one minute.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	m := seconds / 60
	s := seconds % 60
	if m > 0 {
		return fmt.Sprintf("%d:%02d", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// CountCorrect counts positions where typed matches target.
func CountCorrect(target, typed []rune) int {
	n := len(typed)
	if len(target) < n {
		n = len(target)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if typed[i] == target[i] {
			correct++
		}
	}
	return correct
}

// Grade labels a result for the results screen.
func Grade(wpm, accuracy int) string {
	switch {
	case wpm >= 80 && accuracy >= 95:
		return "Excellent!"
	case wpm >= 60 && accuracy >= 90:
		return "Great!"
	case wpm >= 40 && accuracy >= 85:
		return "Good"
	default:
		return "Keep Practicing"
	}
}
