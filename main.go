package main

import (
	"github.com/ColonelBlimp/morsehat/cmd"
	"github.com/ColonelBlimp/morsehat/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
