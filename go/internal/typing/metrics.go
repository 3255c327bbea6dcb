package typing

import (
	"math"
	"time"
)

// CharsPerWord is the standard word length used for speed.
const CharsPerWord = 5

// minElapsedMinutes guards WPM against the first keystroke's tiny denominator.
const minElapsedMinutes = 0.01

// Accuracy returns the fraction of typed characters that match the target at the
// same position. Empty input is perfectly accurate.
func Accuracy(target, typed string) float64 {
	t := []rune(typed)
	if len(t) == 0 {
		return 1
	}
	return float64(correctChars([]rune(target), t)) / float64(len(t))
}

// WPM returns words per minute counting only correct characters, rounded to the
// nearest integer. Returns 0 when less than 0.01 minutes have elapsed.
func WPM(target, typed string, startedAt, now time.Time) int {
	elapsed := now.Sub(startedAt).Minutes()
	if elapsed < minElapsedMinutes {
		return 0
	}
	correct := correctChars([]rune(target), []rune(typed))
	return int(math.Round(float64(correct) / CharsPerWord / elapsed))
}

func correctChars(target, typed []rune) int {
	n := 0
	for i, r := range typed {
		if i < len(target) && target[i] == r {
			n++
		}
	}
	return n
}
