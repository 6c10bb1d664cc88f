package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"leetbot-cli/internal/cli"
)

// rewriteShorthandArgs turns `leetbot <company> [timeframe]` into
// `leetbot problems <company> [timeframe]`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
// before parsing. Persistent flags may come first, so the first positional
// token is located rather than assumed to be argv[1].
func rewriteShorthandArgs(argv []string, commands map[string]bool) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--api-url":   true,
		"--state-dir": true,
		"--log-level": true,
		"--format":    true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}

		if commands[a] {
			return argv
		}
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "problems")
		out = append(out, argv[i:]...)
		return out
	}
	return argv
}

func main() {
	root := cli.NewRootCmd()
	commands := map[string]bool{"help": true, "completion": true}
	for _, c := range root.Commands() {
		commands[c.Name()] = true
		for _, alias := range c.Aliases {
			commands[alias] = true
		}
	}
	root.SetArgs(rewriteShorthandArgs(os.Args, commands)[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
