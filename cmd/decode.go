package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsehat/internal/morse"
)

// ErrUnknownTokens is returned when decoded input held tokens with no character
var ErrUnknownTokens = errors.New("unknown tokens")

var decodeCmd = &cobra.Command{
	Use:   "decode MORSE...",
	Short: "Print the text for Morse code",
	Long: `Print the text for Morse code written with '.' and '-'. Letters are
separated by one space and words by two, or by '/'. Unknown tokens are printed
as '#', listed on stderr, and make the command fail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wire := strings.Join(args, " ")
		wire = strings.ReplaceAll(wire, " / ", "  ")
		wire = strings.ReplaceAll(wire, "/", "  ")

		text, err := morse.DecodeMessage([]byte(wire))
		fmt.Fprintln(cmd.OutOrStdout(), text)

		bad := morse.UnknownTokens(err)
		for _, te := range bad {
			fmt.Fprintf(cmd.ErrOrStderr(), "unknown token %q at offset %d\n", te.Token, te.Offset)
		}
		if len(bad) > 0 {
			return fmt.Errorf("decode: %d %w", len(bad), ErrUnknownTokens)
		}
		return nil
	},
}
