// Package loader reads program images for the simulator.
//
// A program image is a text file holding one 32-bit instruction word per
// line, written in hexadecimal with an optional 0x prefix. Blank lines and
// lines starting with '#' are ignored, and anything after a '#' on a line is
// treated as a comment.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/murvsim/emu"
)

// ErrProgramTooLarge is returned when a program does not fit in the text
// region it is loaded into.
var ErrProgramTooLarge = errors.New("program does not fit in the text region")

// Program is a loaded program image.
type Program struct {
	// Base is the address of the first instruction.
	Base uint32

	// Words holds the instruction words in program order.
	Words []uint32
}

// LastPC returns the address of the last instruction. An empty program
// reports its base address.
func (p *Program) LastPC() uint32 {
	if len(p.Words) == 0 {
		return p.Base
	}
	return p.Base + uint32(len(p.Words)-1)*4
}

// EndPC returns the first address past the program.
func (p *Program) EndPC() uint32 {
	return p.Base + uint32(len(p.Words))*4
}

// LoadInto writes the program into memory.
func (p *Program) LoadInto(memory *emu.Memory) {
	memory.LoadWords(p.Base, p.Words)
}

// CheckFits returns ErrProgramTooLarge unless every word of the program lies
// inside region.
func (p *Program) CheckFits(region emu.RegionSpec) error {
	end := uint64(p.Base) + uint64(len(p.Words))*4
	if p.Base < region.Begin || end > uint64(region.End)+1 {
		return fmt.Errorf("%w: %d words at 0x%08x, %s is [0x%08x..0x%08x]",
			ErrProgramTooLarge, len(p.Words), p.Base, region.Name, region.Begin, region.End)
	}
	return nil
}

// Load reads a program image from a file and places it at the default text
// base.
func Load(path string) (*Program, error) {
	return LoadAt(path, emu.TextBegin)
}

// LoadAt reads a program image from a file and places it at base.
func LoadAt(path string, base uint32) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := ParseAt(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}

// Parse reads a program image from r and places it at the default text
// base.
func Parse(r io.Reader) (*Program, error) {
	return ParseAt(r, emu.TextBegin)
}

// ParseAt reads a program image from r and places it at base.
func ParseAt(r io.Reader, base uint32) (*Program, error) {
	prog := &Program{Base: base}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		digits := strings.TrimPrefix(strings.TrimPrefix(line, "0x"), "0X")
		word, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid instruction word %q: %w",
				lineNo, line, err)
		}

		prog.Words = append(prog.Words, uint32(word))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return prog, nil
}
