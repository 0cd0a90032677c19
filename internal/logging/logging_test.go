package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		debug   bool
		want    logrus.Level
		wantErr bool
	}{
		{"default", "", false, logrus.InfoLevel, false},
		{"warn", "warn", false, logrus.WarnLevel, false},
		{"debug flag raises", "warn", true, logrus.DebugLevel, false},
		{"debug flag keeps trace", "trace", true, logrus.TraceLevel, false},
		{"invalid", "loud", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(tt.level, tt.debug, &buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", false, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	logger.WithField("component", "session").Info("ready")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "msg=ready") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %q", out)
	}
}
