package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "panelsync: %v\n", err)
		os.Exit(exitCodeForError(err))
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = strings.TrimSpace(args[0])
	}
	switch cmd {
	case "serve":
		return runServeCommand(args[1:], stderr)
	case "demo":
		return runDemoCommand(args[1:], stdout, stderr)
	case "decode":
		return runDecodeCommand(args[1:], stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "panelsync %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		if cmd == "" {
			return withExitCode(errors.New("missing command"), exitUsage)
		}
		return withExitCode(fmt.Errorf("unknown command %q", cmd), exitUsage)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: panelsync <command> [flags]

commands:
  serve    run the dashboard plugin and gateway against a message bus
  demo     run an in-memory host with a sample interactive query
  decode   print a widget payload's manifest as YAML
  version  print the version
`)
}
