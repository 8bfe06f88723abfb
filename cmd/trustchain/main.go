package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/trustchain-labs/trustchain/pkg/config"
)

// Dispatcher
func main() {
	setupLogging(config.Load().LogLevel)
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "decide":
		return runDecideCmd(args[2:], stdout, stderr)
	case "health":
		return runHealthCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "trustchain - multi-model consensus adjudication")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  trustchain <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  decide   Adjudicate a case (--case, --profile, --db, --json)")
	fmt.Fprintln(w, "  health   Report provider health for a profile (--profile)")
	fmt.Fprintln(w, "  verify   Verify a stored record's audit digest (--db, --id)")
	fmt.Fprintln(w, "  help     Show this help")
	fmt.Fprintln(w, "")
}
