// Package console implements the interactive command surface of the
// simulator. Each command maps to an operation on a core.Core.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/murvsim/insts"
	"github.com/sarchlab/murvsim/timing/cache"
	"github.com/sarchlab/murvsim/timing/core"
)

// Prompt is printed before every interactive command.
const Prompt = "murvsim> "

var (
	// ErrQuit is returned by the quit command.
	ErrQuit = errors.New("quit")

	// ErrInvalidCommand is returned for unknown commands and bad arguments.
	ErrInvalidCommand = errors.New("invalid command")
)

type handler func(c *Console, args []string) error

// Console reads commands and prints their results.
type Console struct {
	core    *core.Core
	out     io.Writer
	decoder *insts.Decoder

	profiler *cache.Profiler

	commands map[string]handler
}

// New creates a console that drives the given core and writes to out.
func New(c *core.Core, out io.Writer) *Console {
	con := &Console{
		core:    c,
		out:     out,
		decoder: insts.NewDecoder(),
	}

	con.commands = map[string]handler{
		"sim":     (*Console).sim,
		"run":     (*Console).run,
		"rdump":   (*Console).rdump,
		"mdump":   (*Console).mdump,
		"input":   (*Console).input,
		"high":    (*Console).high,
		"low":     (*Console).low,
		"forward": (*Console).forward,
		"reset":   (*Console).reset,
		"print":   (*Console).print,
		"show":    (*Console).show,
		"stats":   (*Console).stats,
		"cache":   (*Console).cacheStats,
		"?":       (*Console).help,
		"help":    (*Console).help,
		"quit":    (*Console).quit,
		"exit":    (*Console).quit,
	}

	return con
}

// SetCacheProfiler makes the cache command report the given profiler.
func (c *Console) SetCacheProfiler(p *cache.Profiler) {
	c.profiler = p
}

// Execute runs a single command line. Blank lines are ignored. It returns
// ErrQuit when the line asks to leave.
func (c *Console) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidCommand, fields[0])
	}

	return cmd(c, fields[1:])
}

// Serve executes commands read from in, one per line, until quit or the end
// of the input. Command errors are printed and do not stop the loop. If
// interactive is set, a prompt is printed before every command.
func (c *Console) Serve(in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)

	for {
		if interactive {
			fmt.Fprint(c.out, Prompt)
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		err := c.Execute(scanner.Text())
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

// Help prints the command list.
func (c *Console) Help() {
	fmt.Fprint(c.out, helpText)
}

const helpText = `------------------------------------------------------------------
sim                   -- simulate program to completion
run <n>               -- simulate program for <n> cycles
rdump                 -- dump register values
reset                 -- clear all registers/memory and re-load the program
input <reg> <val>     -- set GPR <reg> to <val>
mdump <start> <stop>  -- dump memory from <start> to <stop> address
high <val>            -- set the HI register to <val>
low <val>             -- set the LO register to <val>
print                 -- print the program loaded into memory
show                  -- print the current content of the pipeline registers
forward <0|1>         -- disable / enable forwarding
stats                 -- print pipeline statistics
cache                 -- print cache profile statistics
?                     -- display help menu
quit                  -- exit the simulator
------------------------------------------------------------------
`
