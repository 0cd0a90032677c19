package morse

// Symbol is one unit produced by a gesture, a button, or the receive stream.
// Its value is the wire character.
type Symbol byte

const (
	SymNone       Symbol = 0
	SymDot        Symbol = Dot
	SymDash       Symbol = Dash
	SymSpace      Symbol = Space
	SymTerminator Symbol = Terminator
)

func (s Symbol) String() string {
	switch s {
	case SymDot:
		return "dot"
	case SymDash:
		return "dash"
	case SymSpace:
		return "space"
	case SymTerminator:
		return "terminator"
	case SymNone:
		return "none"
	}
	return "invalid"
}

// Byte returns the wire character
func (s Symbol) Byte() byte {
	return byte(s)
}
