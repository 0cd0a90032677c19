package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetViperForTest() {
	viper.Reset()
}

// useHome points the user config dir at a temp dir holding content as config.yaml
func useHome(t *testing.T, content string) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	if content == "" {
		return
	}
	configDir := filepath.Join(tmpDir, ".config", "morsehat")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// execute runs the root command with args and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"port", "p", "/dev/ttyACM0"},
		{"baud", "b", "115200"},
		{"wpm", "w", "20"},
		{"debug", "D", "false"},
		{"log-level", "", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "morsehat" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "morsehat")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}

	want := map[string]bool{"run": false, "encode": false, "decode": false, "ports": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetViperForTest()
	useHome(t, "")

	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"morsehat", "--port", "--wpm", "run", "decode"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	for _, name := range []string{"events", "link", "listen", "watch"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run flag %q not found", name)
		}
	}
}

func TestInitConfig_BindsFlags(t *testing.T) {
	resetViperForTest()
	useHome(t, "wpm: 18\nbaud_rate: 9600\n")

	initConfig()
	if got := viper.GetInt("wpm"); got != 18 {
		t.Errorf("viper.GetInt(wpm) = %d, want 18 from config", got)
	}

	if err := rootCmd.PersistentFlags().Set("baud", "57600"); err != nil {
		t.Fatal(err)
	}
	defer func() {
		f := rootCmd.PersistentFlags().Lookup("baud")
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}()
	if got := viper.GetInt("baud_rate"); got != 57600 {
		t.Errorf("viper.GetInt(baud_rate) = %d, want 57600 from flag", got)
	}
}

func TestEncodeCmd(t *testing.T) {
	resetViperForTest()
	useHome(t, "")

	out, _, err := execute(t, "encode", "SOS", "hi")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if want := "... --- ...  .... ..\n"; out != want {
		t.Errorf("encode output = %q, want %q", out, want)
	}
}

func TestEncodeCmd_Unencodable(t *testing.T) {
	resetViperForTest()
	useHome(t, "")

	out, _, err := execute(t, "encode", "a~b")
	if err == nil {
		t.Fatal("Execute() error = nil, want error for '~'")
	}
	if want := ".- -...\n"; out != want {
		t.Errorf("encode output = %q, want %q", out, want)
	}
}

func TestDecodeCmd(t *testing.T) {
	resetViperForTest()
	useHome(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"one arg", []string{"... --- ..."}, "sos\n"},
		{"split args", []string{"....", ".."}, "hi\n"},
		{"slash word gap", []string{".... .. / -.-."}, "hi c\n"},
		{"two space word gap", []string{".... ..  -.-."}, "hi c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"decode"}, tt.args...)...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if out != tt.want {
				t.Errorf("decode output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestDecodeCmd_UnknownTokens(t *testing.T) {
	resetViperForTest()
	useHome(t, "")

	out, errOut, err := execute(t, "decode", "...... .-")
	if !errors.Is(err, ErrUnknownTokens) {
		t.Fatalf("Execute() error = %v, want ErrUnknownTokens", err)
	}
	if out != "#a\n" {
		t.Errorf("decode output = %q, want %q", out, "#a\n")
	}
	if !strings.Contains(errOut, `"......"`) {
		t.Errorf("stderr should name the bad token, got %q", errOut)
	}
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"sample rate out of range", "sample_rate: 1000000\n"},
		{"threshold out of range", "threshold: 2.0\n"},
		{"unknown link", "link: pigeon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViperForTest()
			useHome(t, tt.config)

			_, _, err := execute(t, "run")
			if err == nil {
				t.Fatal("expected error for invalid config, got nil")
			}
			if !strings.Contains(err.Error(), "config") {
				t.Errorf("expected config error, got: %v", err)
			}
		})
	}
}
