package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsehat/internal/morse"
)

var encodeCmd = &cobra.Command{
	Use:   "encode TEXT...",
	Short: "Print the Morse code for text",
	Long: `Print the Morse code for text. Letters are separated by one space and words
by two. Characters without a code are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := morse.EncodeText(strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), wire)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	},
}
