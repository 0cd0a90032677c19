// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsehat/internal/config"
	"github.com/ColonelBlimp/morsehat/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "morsehat",
	Short: "Morse code messaging hat",
	Long: `Compose Morse code with gestures, buttons, and a light sensor, send it to a
peer hat over serial or TCP, and play back what the peer sends as sound,
light, and text.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps persistent flags to their config keys
var flagKeys = map[string]string{
	"port":      "serial_port",
	"baud":      "baud_rate",
	"wpm":       "wpm",
	"debug":     "debug",
	"log-level": "log_level",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("port", "p", "/dev/ttyACM0", "serial port of the peer link")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "serial baud rate")
	rootCmd.PersistentFlags().IntP("wpm", "w", 20, "playback speed in words per minute")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, encodeCmd, decodeCmd, portsCmd)
}

// bindFlags binds command flags to viper. It runs on every execution so the
// bindings survive a viper.Reset.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		if f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	bindFlags(rootCmd, flagKeys)
	bindFlags(runCmd, runFlagKeys)
}

// loadSettings returns validated settings and a logger configured from them
func loadSettings(errOut io.Writer) (*config.Settings, *logrus.Logger, error) {
	s, err := config.Get()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(s.LogLevel, s.Debug, errOut)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return s, log, nil
}
