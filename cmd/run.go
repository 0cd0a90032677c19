package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsehat/internal/config"
)

// runFlagKeys maps run flags to their config keys
var runFlagKeys = map[string]string{
	"events": "events",
	"link":   "link",
	"listen": "listen",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the hat",
	Long: `Start composing, sending, receiving, and displaying messages.

Inputs come from the IMU bus (imu_bus) and from an event script (--events,
"-" for stdin). Received messages are shown on stdout, keyed on the status
light, and played on the sound card when audio_enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runHat,
}

func init() {
	runCmd.Flags().String("events", "", "event script driving the inputs (- for stdin)")
	runCmd.Flags().String("link", config.LinkNone, "peer link: serial, tcp, or none")
	runCmd.Flags().Bool("listen", false, "decode Morse heard on the microphone")
	runCmd.Flags().Bool("watch", false, "apply gesture threshold changes from the config file live")
}

func runHat(cmd *cobra.Command, _ []string) error {
	s, log, err := loadSettings(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRig(ctx, s, log, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		config.Watch(log, r.applySettings)
	}

	log.WithFields(logrus.Fields{
		"link":  s.Link,
		"tasks": strings.Join(r.runtime.Tasks(), ","),
	}).Info("morsehat running")

	return r.runtime.Run(ctx)
}
