package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newShellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one mindmap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          fmt.Sprintf("%s> ", opts.mindmapID),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    shellCompleter(),
			})
			if err != nil {
				return fmt.Errorf("failed to start shell: %w", err)
			}
			defer rl.Close()

			return runShell(cmd.Context(), rl, cmd.OutOrStdout(), opts)
		},
	}
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("show"),
		readline.PcItem("add-node"),
		readline.PcItem("add-branch"),
		readline.PcItem("delete-node"),
		readline.PcItem("update-node"),
		readline.PcItem("toggle"),
		readline.PcItem("reset"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

type lineReader interface {
	Readline() (string, error)
}

// runShell executes each line as a mindmapctl command until exit or EOF.
// The global flags of the shell invocation apply to every line.
func runShell(ctx context.Context, rl lineReader, out io.Writer, opts *globalOptions) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args := parseArgs(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(out, "already in a shell")
			continue
		}

		root := newRootCmd()
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append(args,
			"--server", opts.server,
			"--mindmap", opts.mindmapID,
			fmt.Sprintf("--json=%t", opts.asJSON),
		))
		if err := root.ExecuteContext(ctx); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

// parseArgs splits a line on spaces, keeping double-quoted text together
func parseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoted := false

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ' ' && !inQuotes:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args
}
