/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// IO carries the output streams of a command. Logs go to Err.
type IO struct {
	Out io.Writer
	Err io.Writer
}

// Command is one census subcommand.
type Command struct {
	Flags *flag.FlagSet
	// Usage starts with the command name, e.g. "backfill --start <date> --end <date>".
	Usage string
	Short string
	Exec  func(ctx context.Context, o *IO, args []string) error
}

func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-44s %s", c.Usage, c.Short)
}

func (c *Command) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: census", c.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.Short)
	if c.Flags.HasFlags() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fmt.Fprint(w, c.Flags.FlagUsages())
	}
}

// Run parses flags and executes the command. Any error exits 1.
func (c *Command) Run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	c.Flags.SetOutput(io.Discard)
	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(stdout)
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprintln(stderr)
		c.PrintHelp(stderr)
		return 1
	}
	if err := c.Exec(ctx, &IO{Out: stdout, Err: stderr}, c.Flags.Args()); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
