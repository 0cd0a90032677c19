// Package morse holds the static Morse alphabet and the text codec used by the hat.
package morse

import (
	"errors"
	"fmt"
	"strings"
)

// Wire characters used by every message stream
const (
	// Dot is a short element
	Dot = '.'
	// Dash is a long element
	Dash = '-'
	// Space separates letters; two in a row separate words
	Space = ' '
	// Terminator ends a complete message
	Terminator = '\n'

	// Unknown is written in place of a token missing from the alphabet.
	// It is never produced by a valid token.
	Unknown = '#'

	// MaxTokenLength is the longest token present in the alphabet
	MaxTokenLength = 6
)

var (
	// ErrUnknownToken indicates a token is not present in the alphabet
	ErrUnknownToken = errors.New("unknown morse token")
	// ErrUnencodable indicates a character has no Morse representation
	ErrUnencodable = errors.New("character has no morse encoding")
)

// Entry pairs a token with the character it represents
type Entry struct {
	Token string
	Char  byte
}

// Alphabet is the static table. Entries are unique on token and on character.
var Alphabet = [40]Entry{
	{".-", 'a'},
	{"-...", 'b'},
	{"-.-.", 'c'},
	{"-..", 'd'},
	{".", 'e'},
	{"..-.", 'f'},
	{"--.", 'g'},
	{"....", 'h'},
	{"..", 'i'},
	{".---", 'j'},
	{"-.-", 'k'},
	{".-..", 'l'},
	{"--", 'm'},
	{"-.", 'n'},
	{"---", 'o'},
	{".--.", 'p'},
	{"--.-", 'q'},
	{".-.", 'r'},
	{"...", 's'},
	{"-", 't'},
	{"..-", 'u'},
	{"...-", 'v'},
	{".--", 'w'},
	{"-..-", 'x'},
	{"-.--", 'y'},
	{"--..", 'z'},
	{"-----", '0'},
	{".----", '1'},
	{"..---", '2'},
	{"...--", '3'},
	{"....-", '4'},
	{".....", '5'},
	{"-....", '6'},
	{"--...", '7'},
	{"---..", '8'},
	{"----.", '9'},
	{".-.-.-", '.'},
	{"--..--", ','},
	{"..--..", '?'},
	{"-.-.--", '!'},
}

// Decode returns the character for a single token.
// Unknown tokens return Unknown together with ErrUnknownToken.
func Decode(token string) (byte, error) {
	if len(token) == 0 || len(token) > MaxTokenLength {
		return Unknown, ErrUnknownToken
	}
	for i := range Alphabet {
		if Alphabet[i].Token == token {
			return Alphabet[i].Char, nil
		}
	}
	return Unknown, ErrUnknownToken
}

// Encode returns the token for a single character. Upper case letters are folded.
func Encode(c byte) (string, error) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for i := range Alphabet {
		if Alphabet[i].Char == c {
			return Alphabet[i].Token, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnencodable, c)
}

// IsSymbol reports whether c is a dot or a dash
func IsSymbol(c byte) bool {
	return c == Dot || c == Dash
}

// EncodeText converts text to wire form: letters separated by one space,
// words by two. Runs of whitespace collapse into a single word gap.
func EncodeText(text string) (string, error) {
	var words []string
	var errs []error

	for _, word := range strings.Fields(text) {
		tokens := make([]string, 0, len(word))
		for i := 0; i < len(word); i++ {
			token, err := Encode(word[i])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			tokens = append(tokens, token)
		}
		if len(tokens) > 0 {
			words = append(words, strings.Join(tokens, " "))
		}
	}

	return strings.Join(words, "  "), errors.Join(errs...)
}
