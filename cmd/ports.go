package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsehat/internal/audio"
	"github.com/ColonelBlimp/morsehat/internal/transport"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and audio devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		names, err := transport.ListPorts()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Serial ports:")
		if len(names) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, n := range names {
			fmt.Fprintf(out, "  %s\n", n)
		}

		b, err := audio.Open()
		if err != nil {
			fmt.Fprintf(out, "Audio devices: unavailable (%v)\n", err)
			return nil
		}
		defer b.Close()

		for _, dir := range []audio.Direction{audio.DirPlayback, audio.DirCapture} {
			devices, err := b.Devices(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Audio %s devices:\n", dir)
			for _, d := range devices {
				mark := " "
				if d.Default {
					mark = "*"
				}
				fmt.Fprintf(out, " %s[%d] %s\n", mark, d.Index, d.Name)
			}
		}
		return nil
	},
}
