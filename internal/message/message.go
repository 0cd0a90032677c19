// Package message implements the fixed-capacity character buffers shared by
// the compose, receive, and decode streams.
package message

import (
	"errors"
	"fmt"
)

// Terminator marks the end of a complete message
const Terminator = '\n'

// MinCapacity leaves room for at least one character and the terminator
const MinCapacity = 2

var (
	// ErrFull indicates the buffer has no room left before the terminator cell
	ErrFull = errors.New("message buffer full")
	// ErrInvalidCapacity indicates the requested capacity is below MinCapacity
	ErrInvalidCapacity = errors.New("message capacity too small")
)

// Message is an append-only byte buffer with an explicit write cursor.
// The final cell is reserved for the terminator, so the cursor never leaves
// [0, capacity-1]. A Message is not safe for concurrent use.
type Message struct {
	buf    []byte
	cursor int
	last   byte
}

// New creates a message with the given capacity
func New(capacity int) (*Message, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("%w: %d (minimum %d)", ErrInvalidCapacity, capacity, MinCapacity)
	}
	return &Message{buf: make([]byte, capacity)}, nil
}

// Append writes c at the cursor and advances it
func (m *Message) Append(c byte) error {
	if m.Full() {
		return ErrFull
	}
	m.buf[m.cursor] = c
	m.cursor++
	m.last = c
	return nil
}

// Terminate writes the terminator at the cursor without advancing
func (m *Message) Terminate() {
	m.buf[m.cursor] = Terminator
}

// Reset rewinds the cursor. Old content stays in place until overwritten.
func (m *Message) Reset() {
	m.cursor = 0
	m.last = 0
}

// Content returns a copy of the bytes before the cursor
func (m *Message) Content() []byte {
	out := make([]byte, m.cursor)
	copy(out, m.buf[:m.cursor])
	return out
}

// Terminated returns the content followed by the terminator
func (m *Message) Terminated() []byte {
	out := make([]byte, m.cursor+1)
	copy(out, m.buf[:m.cursor])
	out[m.cursor] = Terminator
	return out
}

// IsTerminated reports whether the cell under the cursor holds the terminator
func (m *Message) IsTerminated() bool {
	return m.buf[m.cursor] == Terminator
}

// Last returns the most recently appended byte, or 0 if nothing was appended since Reset
func (m *Message) Last() byte {
	return m.last
}

// Cursor returns the write position
func (m *Message) Cursor() int {
	return m.cursor
}

// Capacity returns the total number of cells including the terminator cell
func (m *Message) Capacity() int {
	return len(m.buf)
}

// Full reports whether only the terminator cell remains
func (m *Message) Full() bool {
	return m.cursor >= len(m.buf)-1
}

// Len returns the number of content bytes
func (m *Message) Len() int {
	return m.cursor
}

// String returns the content as a string
func (m *Message) String() string {
	return string(m.buf[:m.cursor])
}
