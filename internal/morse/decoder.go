package morse

import (
	"errors"
	"fmt"
	"strings"
)

// TokenError records a token that could not be decoded
type TokenError struct {
	Token  string
	Offset int // byte offset of the token's first symbol in the raw message
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("unknown morse token %q at offset %d", e.Token, e.Offset)
}

func (e *TokenError) Unwrap() error {
	return ErrUnknownToken
}

// DecodeMessage translates a raw incoming message into plain text.
//
// Letters are separated by one space and words by two. Decoding stops at the
// first Terminator, or at a double space directly followed by the Terminator or
// by the end of input. Unknown tokens are written as Unknown and reported in
// the returned error, which joins one *TokenError per bad token; the decoded
// text is always returned.
func DecodeMessage(raw []byte) (string, error) {
	var out strings.Builder
	var errs []error

	token := make([]byte, 0, MaxTokenLength)
	start := 0
	var prev byte

	flush := func() {
		if len(token) == 0 {
			return
		}
		c, err := Decode(string(token))
		if err != nil {
			errs = append(errs, &TokenError{Token: string(token), Offset: start})
		}
		out.WriteByte(c)
		token = token[:0]
	}

scan:
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case Terminator:
			break scan
		case Space:
			if prev == Space {
				if i+1 >= len(raw) || raw[i+1] == Terminator {
					break scan
				}
				out.WriteByte(Space)
			} else {
				flush()
			}
		default:
			if len(token) == 0 {
				start = i
			}
			token = append(token, c)
		}
		prev = c
	}
	flush()

	return out.String(), errors.Join(errs...)
}

// UnknownTokens extracts the TokenErrors carried by an error from DecodeMessage
func UnknownTokens(err error) []*TokenError {
	if err == nil {
		return nil
	}
	var found []*TokenError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			found = append(found, UnknownTokens(e)...)
		}
		return found
	}
	var te *TokenError
	if errors.As(err, &te) {
		found = append(found, te)
	}
	return found
}
