// Command stash keeps the output of commands for later.
//
// Usage:
//
//	some-command | stash          # same as "stash push"
//	stash push < file
//	stash list
//	stash show [index]
//	stash pop [index]
//	stash delete [index]
//	stash clear
//	stash prune [-keep N] [-age DURATION]
//
// Index 0, the default, is the most recently pushed entry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobg/subcmd"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/bobg/stash"
	"github.com/bobg/stash/store/logging"
)

// Exit codes.
const (
	exitErr        = 1
	exitUsage      = 2
	exitNotFound   = 3
	exitOutOfRange = 4
)

type maincmd struct {
	s      stash.Store
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Whether stdin is a terminal.
	// With no subcommand, input is pushed only when it is not.
	interactive bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("stash: ")

	var (
		config  = flag.String("config", os.Getenv(configEnv), "path to JSON config file (default: file store in $"+stash.DirEnv+" or the user data dir)")
		verbose = flag.Bool("v", false, "log store operations to stderr")
	)
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()

	ctx := context.Background()

	s, err := storeFromConfig(ctx, *config)
	if err != nil {
		log.Print(err)
		os.Exit(exitErr)
	}
	closer, _ := s.(io.Closer)
	if *verbose {
		s = logging.New(s)
	}

	c := maincmd{
		s:           s,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
	code := c.run(ctx, flag.Args())
	if closer != nil {
		if err = closer.Close(); err != nil {
			log.Printf("closing store: %s", err)
		}
	}
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code.
// With no subcommand it pushes stdin, unless stdin is a terminal.
func (c maincmd) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		if c.interactive {
			usage(c.stderr)
			return exitUsage
		}
		args = []string{"push"}
	}

	err := subcmd.Run(ctx, c, args)
	if err != nil {
		logger := log.New(c.stderr, log.Prefix(), log.Flags())
		logger.Print(err)
	}
	return exitCode(err)
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"clear", c.clear, nil,
		"delete", c.delete, nil,
		"list", c.list, subcmd.Params(
			"id", subcmd.Bool, false, "include entry IDs",
			"utc", subcmd.Bool, false, "show times in UTC instead of local time",
		),
		"pop", c.pop, nil,
		"prune", c.prune, subcmd.Params(
			"keep", subcmd.Int, -1, "keep this many of the newest entries",
			"age", subcmd.Duration, time.Duration(0), "keep entries younger than this",
		),
		"push", c.push, subcmd.Params(
			"id", subcmd.Bool, false, "print the new entry's ID",
		),
		"show", c.show, nil,
	)
}

func usage(out io.Writer) {
	fmt.Fprintf(out, "Usage: %s [flags] [subcommand] [args]\n\nSubcommands:\n", os.Args[0])

	var names []string
	for name := range (maincmd{}).Subcmds() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintf(out, "\nWith no subcommand and input piped in, push it.\n\nFlags:\n")
	flag.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(out, "  -%s\n    \t%s\n", f.Name, f.Usage)
	})
}

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

// Prefix of the error subcmd.Run reports for bad subcommand flags.
const parseArgsPrefix = "parsing args: "

func exitCode(err error) int {
	var uerr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr),
		errors.Is(err, subcmd.ErrUnknown),
		errors.Is(err, subcmd.ErrNoArgs),
		strings.HasPrefix(err.Error(), parseArgsPrefix):
		return exitUsage
	case errors.Is(err, stash.ErrNotFound):
		return exitNotFound
	case errors.Is(err, stash.ErrOutOfRange):
		return exitOutOfRange
	}
	return exitErr
}

// parseIndex interprets the optional index argument of show, pop, and delete.
func parseIndex(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return 0, usageError{msg: fmt.Sprintf("invalid index %q", args[0])}
		}
		return n, nil
	}
	return 0, usageError{msg: "too many arguments"}
}
