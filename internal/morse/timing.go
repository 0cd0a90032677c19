package morse

import (
	"errors"
	"time"
)

// Keying ratios in dit units (ITU)
const (
	// DahDitRatio is the length of a dah in dits
	DahDitRatio = 3
	// IntraCharGap separates elements inside a character
	IntraCharGap = 1
	// InterCharGap separates characters
	InterCharGap = 3
	// WordGap separates words
	WordGap = 7

	// DitsPerWord is the length of the standard word "PARIS"
	DitsPerWord = 50
)

// ErrInvalidWPM indicates WPM must be positive
var ErrInvalidWPM = errors.New("WPM must be positive")

// DitDuration returns the dit length for a keying speed
func DitDuration(wpm int) (time.Duration, error) {
	if wpm <= 0 {
		return 0, ErrInvalidWPM
	}
	return time.Minute / time.Duration(wpm*DitsPerWord), nil
}

// Element is one keyed interval: a tone or a silence
type Element struct {
	On   bool
	Dits int
}

// Keying converts a wire-form message into tone/silence intervals.
// Characters other than dot, dash, and space are skipped.
func Keying(wire string) []Element {
	var out []Element
	gap := 0
	for i := 0; i < len(wire); i++ {
		switch wire[i] {
		case Dot, Dash:
			if len(out) > 0 {
				if gap == 0 {
					gap = IntraCharGap
				}
				out = append(out, Element{On: false, Dits: gap})
			}
			gap = 0
			dits := 1
			if wire[i] == Dash {
				dits = DahDitRatio
			}
			out = append(out, Element{On: true, Dits: dits})
		case Space:
			if gap == 0 {
				gap = InterCharGap
			} else {
				gap = WordGap
			}
		}
	}
	return out
}
