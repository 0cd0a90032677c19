// Package session holds the hat's state machine: the compose lane that turns
// gestures and buttons into an outgoing message, and the display lane that
// receives, decodes, and renders incoming messages.
package session

import "time"

// State is a position in either lane
type State int

const (
	Idle State = iota
	AwaitingGesture
	SymbolReady
	SpacePending
	// WordComplete is reached after two consecutive spaces
	WordComplete
	Transmitting
	Receiving
	Displaying
	DisplayComplete
)

var stateNames = [...]string{
	Idle:            "idle",
	AwaitingGesture: "awaiting_gesture",
	SymbolReady:     "symbol_ready",
	SpacePending:    "space_pending",
	WordComplete:    "word_complete",
	Transmitting:    "transmitting",
	Receiving:       "receiving",
	Displaying:      "displaying",
	DisplayComplete: "display_complete",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Lane identifies which half of the machine a transition belongs to
type Lane string

const (
	LaneCompose Lane = "compose"
	LaneDisplay Lane = "display"
)

// Transition describes one state change
type Transition struct {
	Lane   Lane
	From   State
	To     State
	Reason string
	At     time.Time
}

// TransitionCallback observes transitions. It is called with the session
// lock held: it must be fast and must not call back into the Session.
type TransitionCallback func(Transition)

// Snapshot is a consistent view of both lanes
type Snapshot struct {
	Compose   State
	Display   State
	SessionID string // changes each time composing starts
	Cycle     uint64 // id of the latest display cycle
	Outgoing  string
	Incoming  string
	Decoded   string
	Dropped   int // inbound bytes discarded while a message was on display
}

// DisplayCycle is one decoded message handed to the output renderers
type DisplayCycle struct {
	ID   uint64
	Raw  string
	Text string
	// Err carries unknown-token errors from decoding; Text is still usable
	Err error
}
