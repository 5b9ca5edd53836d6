package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/livefir/livepart/cmd/livepart/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "demo":
		err = commands.Demo(args)
	case "compile":
		err = commands.Compile(args, os.Stdout)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("livepart version %s\n", version)

	if info, ok := debug.ReadBuildInfo(); ok {
		revision := commit
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && revision == "unknown" {
				revision = setting.Value
			}
		}
		if len(revision) > 12 {
			revision = revision[:12]
		}
		if revision != "unknown" {
			fmt.Printf("commit: %s\n", revision)
		}
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("livepart: incremental html.Node templating")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  livepart demo [--addr :8080] [--config file.yaml]   Serve the counter preview")
	fmt.Println("  livepart compile [--config file.yaml] <file>        Print compiled markup of a template file")
	fmt.Println("  livepart version                                    Show version information")
	fmt.Println()
	fmt.Println("Template files separate static segments with {{}}:")
	fmt.Println("  <p class={{}}>{{}}</p>")
}
