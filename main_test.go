package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// TestMain_RunsCommand checks main dispatches to the command tree
func TestMain_RunsCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	oldArgs, oldStdout := os.Args, os.Stdout
	defer func() { os.Args, os.Stdout = oldArgs, oldStdout }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Args = []string{"morsehat", "encode", "sos"}
	os.Stdout = w

	main()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if want := "... --- ...\n"; string(out) != want {
		t.Errorf("main() output = %q, want %q", out, want)
	}
}
