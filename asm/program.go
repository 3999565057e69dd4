package asm

import (
	"iter"
	"slices"
	"strings"

	"github.com/ezrec/regvm/isa"
)

// Line is one assembled source line.
type Line struct {
	LineNo    int      // Source line number, 1 based.
	Pc        int      // Offset of the first byte in the program.
	Words     []string // Words after equate and macro expansion.
	Bytes     []byte   // Encoded bytes.
	LinkLabel string   // Label patched into the load immediate at link time.
}

// Program is an assembled listing.
type Program struct {
	Lines []Line
}

// Debug locates the byte at pc within the listing.
type Debug struct {
	*Line
	Index int // Byte index within Line.Bytes.
}

// Debug maps a program offset back to its source line. The returned Line
// is nil if pc is outside the program.
func (prog *Program) Debug(pc uint) (dbg Debug) {
	for n, line := range prog.Lines {
		start := uint(line.Pc)
		if pc >= start && pc < start+uint(len(line.Bytes)) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(pc - start),
			}
			break
		}
	}

	return
}

// Binary returns the raw program buffer.
func (prog *Program) Binary() (bins []byte) {
	for _, b := range prog.Bytes() {
		bins = append(bins, b)
	}

	return
}

// Len is the size of the program in bytes.
func (prog *Program) Len() int {
	if len(prog.Lines) == 0 {
		return 0
	}

	last := prog.Lines[len(prog.Lines)-1]
	return last.Pc + len(last.Bytes)
}

// Bytes iterates over every program byte with its offset.
func (prog *Program) Bytes() iter.Seq2[int, byte] {
	return func(yield func(pc int, b byte) bool) {
		for _, line := range prog.Lines {
			for n, b := range line.Bytes {
				if !yield(line.Pc+n, b) {
					return
				}
			}
		}
	}
}

// Clone returns a deep copy of the program.
func (prog *Program) Clone() *Program {
	lines := slices.Clone(prog.Lines)
	for n := range lines {
		lines[n].Words = slices.Clone(lines[n].Words)
		lines[n].Bytes = slices.Clone(lines[n].Bytes)
	}

	return &Program{Lines: lines}
}

// Listing builds a Program from a raw program buffer, one Line per decoded
// instruction. A trailing partial instruction gets a line of its own.
func Listing(binary []byte) (prog *Program) {
	prog = &Program{}

	for pc, inst := range isa.Disassemble(binary) {
		prog.Lines = append(prog.Lines, Line{
			LineNo: len(prog.Lines) + 1,
			Pc:     pc,
			Words:  strings.Fields(inst.String()),
			Bytes:  inst.Bytes(),
		})
	}

	return
}
