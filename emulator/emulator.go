// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"math"

	"github.com/ezrec/regvm/asm"
	"github.com/ezrec/regvm/internal"
	"github.com/ezrec/regvm/isa"
	"github.com/ezrec/regvm/vm"
)

var _emulator_defines = map[string]string{
	// Highest offset a load immediate can address.
	"PROGRAM_MAX": fmt.Sprintf("%#x", math.MaxUint16),
}

// Emulator state. VM + program listing.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.
	Checked bool // If set, faults are returned instead of panicking.

	*vm.VM                    // Reference to the VM.
	Program *asm.Program      // Reference to the currently running program listing.
	Equate  map[string]string // Additional equates for Assemble.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		VM:      vm.New(),
		Program: &asm.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.VM.Defines(),
		isa.Defines(),
	)
}

// Assemble parses a source stream into the emulator's program.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	as := &asm.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		as.Predefine(key, value)
	}
	for key, value := range emu.Equate {
		as.Predefine(key, value)
	}

	prog, err := as.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// LoadBinary uses a raw program buffer as the emulator's program.
func (emu *Emulator) LoadBinary(binary []byte) {
	emu.Program = asm.Listing(binary)
}

// Reset the VM state, and load the program.
func (emu *Emulator) Reset() {
	emu.VM.Verbose = emu.Verbose
	emu.VM.Load(emu.Program.Binary())
	emu.VM.Reset()
}

// LineNo returns the current line number for the executing opcode,
// or 0 if the program counter is outside the program.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.VM.Pc)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.VM.Verbose = emu.Verbose

	if !emu.Checked {
		done = !emu.VM.Step()
		return
	}

	lineno := emu.LineNo()
	more, err := emu.VM.StepChecked()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Err: err}
		return
	}

	done = !more
	return
}

// Run ticks the emulator until done, or an error.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
