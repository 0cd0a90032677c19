package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/debounce"
	"github.com/ColonelBlimp/morsehat/internal/message"
	"github.com/ColonelBlimp/morsehat/internal/morse"
)

// Default buffer capacities, terminator cell included
const (
	DefaultOutgoingCapacity = 120
	DefaultIncomingCapacity = 502
	DefaultDecodedCapacity  = 120

	// MinOutgoingCapacity holds one symbol, two spaces and the terminator
	MinOutgoingCapacity = 4
)

var (
	// ErrIllegalTransition indicates the event is not accepted in the current state
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrBounced indicates a button edge arrived inside the debounce window
	ErrBounced = errors.New("button edge inside debounce window")
	// ErrInvalidSymbol indicates AddSymbol was given something other than a dot or dash
	ErrInvalidSymbol = errors.New("only dot and dash can be added")
	// ErrDisplayBusy indicates an inbound byte arrived while a message is on display
	ErrDisplayBusy = errors.New("display busy, inbound byte dropped")
	// ErrStaleCycle indicates a completion for a cycle that is not on display
	ErrStaleCycle = errors.New("display cycle is not current")
)

// Config sets up a Session
type Config struct {
	OutgoingCapacity int
	IncomingCapacity int
	DecodedCapacity  int
	// Debounce is the minimum spacing between accepted button edges
	Debounce time.Duration
	// Clock is used for debouncing and transition timestamps; nil means time.Now
	Clock debounce.Clock
	// AutoTransmit sends the message as soon as two consecutive spaces are entered.
	// When false the session waits in WordComplete for one more space trigger.
	AutoTransmit bool
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	return Config{
		OutgoingCapacity: DefaultOutgoingCapacity,
		IncomingCapacity: DefaultIncomingCapacity,
		DecodedCapacity:  DefaultDecodedCapacity,
		Debounce:         debounce.DefaultWindow,
		AutoTransmit:     true,
	}
}

// Session owns the lane states and the three message buffers. All methods
// are safe for concurrent use.
type Session struct {
	cfg   Config
	clock debounce.Clock
	log   logrus.FieldLogger

	primary   *debounce.Debouncer
	secondary *debounce.Debouncer

	mu       sync.Mutex
	compose  State
	display  State
	outgoing *message.Message
	incoming *message.Message
	decoded  *message.Message

	sessionID string
	cycle     uint64
	dropped   int

	changed     chan struct{}
	subscribers []chan DisplayCycle
	callback    TransitionCallback
}

// New creates a session in Idle on both lanes
func New(cfg Config, log logrus.FieldLogger) (*Session, error) {
	if cfg.OutgoingCapacity < MinOutgoingCapacity {
		return nil, fmt.Errorf("outgoing buffer: %w: %d (minimum %d)",
			message.ErrInvalidCapacity, cfg.OutgoingCapacity, MinOutgoingCapacity)
	}
	outgoing, err := message.New(cfg.OutgoingCapacity)
	if err != nil {
		return nil, fmt.Errorf("outgoing buffer: %w", err)
	}
	incoming, err := message.New(cfg.IncomingCapacity)
	if err != nil {
		return nil, fmt.Errorf("incoming buffer: %w", err)
	}
	decoded, err := message.New(cfg.DecodedCapacity)
	if err != nil {
		return nil, fmt.Errorf("decoded buffer: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Session{
		cfg:       cfg,
		clock:     clock,
		log:       log.WithField("component", "session"),
		primary:   debounce.New(cfg.Debounce, clock),
		secondary: debounce.New(cfg.Debounce, clock),
		compose:   Idle,
		display:   Idle,
		outgoing:  outgoing,
		incoming:  incoming,
		decoded:   decoded,
		changed:   make(chan struct{}),
	}, nil
}

// SetTransitionCallback installs an observer for every state change
func (s *Session) SetTransitionCallback(cb TransitionCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

// Snapshot returns both lanes and buffer contents
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the compose lane state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose
}

// DisplayState returns the display lane state
func (s *Session) DisplayState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// Changed returns a channel that is closed at the next transition
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitFor blocks until match accepts a snapshot or ctx is done
func (s *Session) WaitFor(ctx context.Context, match func(Snapshot) bool) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		ch := s.changed
		s.mu.Unlock()

		if match(snap) {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Subscribe returns a channel receiving every display cycle
func (s *Session) Subscribe() <-chan DisplayCycle {
	ch := make(chan DisplayCycle, 1)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// PressPrimary handles the primary button edge: Idle -> AwaitingGesture
func (s *Session) PressPrimary() error {
	if !s.primary.Accept() {
		return ErrBounced
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compose != Idle {
		return s.illegal("primary button", s.compose)
	}
	s.outgoing.Reset()
	s.sessionID = uuid.NewString()
	s.setCompose(AwaitingGesture, "primary button")
	return nil
}

// AddSymbol appends a classified dot or dash
func (s *Session) AddSymbol(sym morse.Symbol) error {
	if sym != morse.SymDot && sym != morse.SymDash {
		return fmt.Errorf("%w: %s", ErrInvalidSymbol, sym)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.compose {
	case AwaitingGesture, SymbolReady, SpacePending:
	default:
		return s.illegal("gesture "+sym.String(), s.compose)
	}

	// Symbols stop while there is still room for the word gap, so a full
	// message can always be closed with the space triggers.
	if s.outgoing.Len()+1+s.gapCells() > s.outgoing.Capacity()-1 {
		return message.ErrFull
	}
	if err := s.outgoing.Append(sym.Byte()); err != nil {
		return err
	}
	s.setCompose(SymbolReady, "gesture "+sym.String())
	return nil
}

// gapCells is the number of spaces stored before the terminator
func (s *Session) gapCells() int {
	if s.cfg.AutoTransmit {
		return 1
	}
	return 2
}

// PressSecondary handles the secondary button edge, which enters a space
func (s *Session) PressSecondary() error {
	if !s.secondary.Accept() {
		return ErrBounced
	}
	return s.addSpace("secondary button")
}

// LightDark handles the light sensor going dark. The light task reports
// edges only, so no debouncing is applied here.
func (s *Session) LightDark() error {
	return s.addSpace("light sensor")
}

func (s *Session) addSpace(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.compose {
	case SymbolReady:
		if err := s.outgoing.Append(morse.Space); err != nil {
			return err
		}
		s.setCompose(SpacePending, source)

	case SpacePending:
		if s.cfg.AutoTransmit {
			s.outgoing.Terminate()
			s.setCompose(WordComplete, source)
			s.setCompose(Transmitting, "double space")
			return nil
		}
		if err := s.outgoing.Append(morse.Space); err != nil {
			return err
		}
		s.setCompose(WordComplete, source)

	case WordComplete:
		s.outgoing.Terminate()
		s.setCompose(Transmitting, source)

	default:
		return s.illegal(source+" space", s.compose)
	}
	return nil
}

// Panic handles the erase gesture: the outgoing message is discarded.
// erased reports whether a composition was in progress; in Idle the gesture
// is accepted but changes nothing.
func (s *Session) Panic() (erased bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compose == Transmitting {
		return false, s.illegal("panic gesture", s.compose)
	}
	s.outgoing.Reset()
	if s.compose == Idle {
		return false, nil
	}
	s.setCompose(Idle, "panic gesture")
	return true, nil
}

// BeginTransmit returns the terminated outgoing message while Transmitting
func (s *Session) BeginTransmit() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compose != Transmitting {
		return nil, "", s.illegal("transmit", s.compose)
	}
	return s.outgoing.Terminated(), s.sessionID, nil
}

// FinishTransmit clears the outgoing buffer and returns to Idle.
// It is called whether or not the links accepted the message.
func (s *Session) FinishTransmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compose != Transmitting {
		return s.illegal("transmit done", s.compose)
	}
	s.outgoing.Reset()
	s.setCompose(Idle, "transmitted")
	return nil
}

// ReceiveByte feeds one inbound byte into the display lane
func (s *Session) ReceiveByte(b byte) error {
	if b == '\r' {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.display {
	case Displaying:
		s.dropped++
		return ErrDisplayBusy
	case Idle, DisplayComplete:
		s.incoming.Reset()
		s.setDisplay(Receiving, "inbound data")
	}

	if b == message.Terminator {
		if s.incoming.Len() == 0 {
			// blank line
			return nil
		}
		s.incoming.Terminate()
		s.startDisplay("terminator")
		return nil
	}

	// Append cannot fail here: the buffer is never left full in Receiving.
	_ = s.incoming.Append(b)
	if s.incoming.Full() {
		s.log.WithFields(logrus.Fields{
			"capacity": s.incoming.Capacity(),
			"content":  s.incoming.String(),
		}).Warn("incoming buffer overflow, displaying truncated message")
		s.incoming.Terminate()
		s.startDisplay("overflow")
	}
	return nil
}

// ReceiveBytes feeds a chunk; bytes dropped while busy are counted, not reported
func (s *Session) ReceiveBytes(p []byte) {
	for _, b := range p {
		_ = s.ReceiveByte(b)
	}
}

// CompleteDisplay is called by the coordinator once every output has rendered cycle
func (s *Session) CompleteDisplay(cycle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.display != Displaying {
		return s.illegal("display complete", s.display)
	}
	if cycle != s.cycle {
		return fmt.Errorf("%w: got %d, current %d", ErrStaleCycle, cycle, s.cycle)
	}
	s.setDisplay(DisplayComplete, "all outputs rendered")
	return nil
}

// startDisplay decodes the incoming message and publishes a cycle. Caller holds mu.
func (s *Session) startDisplay(reason string) {
	raw := s.incoming.Terminated()
	text, err := morse.DecodeMessage(raw)
	if err != nil {
		s.log.WithError(err).WithField("raw", string(raw)).Warn("message contained unknown tokens")
	}

	s.decoded.Reset()
	for i := 0; i < len(text); i++ {
		if aerr := s.decoded.Append(text[i]); aerr != nil {
			s.log.WithField("capacity", s.decoded.Capacity()).Warn("decoded text truncated")
			break
		}
	}
	s.decoded.Terminate()

	s.cycle++
	dc := DisplayCycle{
		ID:   s.cycle,
		Raw:  s.incoming.String(),
		Text: s.decoded.String(),
		Err:  err,
	}
	s.setDisplay(Displaying, reason)

	for _, ch := range s.subscribers {
		select {
		case ch <- dc:
		default:
			s.log.WithField("cycle", dc.ID).Warn("renderer still busy, cycle not delivered")
		}
	}
}

func (s *Session) setCompose(to State, reason string) {
	from := s.compose
	s.compose = to
	s.transitioned(Transition{Lane: LaneCompose, From: from, To: to, Reason: reason, At: s.clock()})
}

func (s *Session) setDisplay(to State, reason string) {
	from := s.display
	s.display = to
	s.transitioned(Transition{Lane: LaneDisplay, From: from, To: to, Reason: reason, At: s.clock()})
}

func (s *Session) transitioned(t Transition) {
	s.log.WithFields(logrus.Fields{
		"lane":    t.Lane,
		"from":    t.From,
		"to":      t.To,
		"session": s.sessionID,
		"cycle":   s.cycle,
	}).Debug(t.Reason)

	if s.callback != nil {
		s.callback(t)
	}
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) illegal(event string, state State) error {
	return fmt.Errorf("%w: %s in state %s", ErrIllegalTransition, event, state)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Compose:   s.compose,
		Display:   s.display,
		SessionID: s.sessionID,
		Cycle:     s.cycle,
		Outgoing:  s.outgoing.String(),
		Incoming:  s.incoming.String(),
		Decoded:   s.decoded.String(),
		Dropped:   s.dropped,
	}
}
