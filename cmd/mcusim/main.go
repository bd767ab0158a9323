// Package main is the entry point for the mcusim command.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
)

// Build information injected via ldflags at build time.
var version = "dev"

// Process exit codes.
const (
	exitOK          = 0
	exitSetup       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInterrupted):
		fmt.Fprintln(stderr, color.YellowString("interrupted"))
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "%s %v\n", color.RedString("error:"), err)
		return exitSetup
	}
}
