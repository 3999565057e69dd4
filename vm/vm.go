package vm

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math"

	"github.com/ezrec/regvm/isa"
)

var _vm_defines = map[string]string{
	"INT32_MAX": fmt.Sprintf("%#x", math.MaxInt32),
	"IMM_MAX":   fmt.Sprintf("%#x", math.MaxUint16),
}

// VM is the execution state of a single interpreter instance.
type VM struct {
	Verbose bool // Set to enable verbose logging.

	Register  [isa.REGISTER_COUNT]int32 // Register bank.
	Pc        uint                      // Offset of the next byte to decode.
	Program   []byte                    // Program buffer.
	Remainder uint32                    // Remainder of the last div.
	Equal     bool                      // Comparison flag.

	Ticks int // Executed steps since New or Reset.
}

// New creates a VM with zeroed registers and no program.
func New() *VM {
	return &VM{}
}

// Defines for the vm.
func (vm *VM) Defines() iter.Seq2[string, string] {
	return maps.All(_vm_defines)
}

// Load replaces the program buffer. Nothing else is reset.
func (vm *VM) Load(program []byte) {
	vm.Program = program
}

// Reset the VM state, keeping the loaded program.
func (vm *VM) Reset() {
	if vm.Verbose {
		log.Printf("vm: reset")
	}

	clear(vm.Register[:])
	vm.Pc = 0
	vm.Remainder = 0
	vm.Equal = false
	vm.Ticks = 0
}

// atEnd is true once the program counter has left the program.
func (vm *VM) atEnd() bool {
	return vm.Pc >= uint(len(vm.Program))
}

// String returns the current VM state as a string.
func (vm *VM) String() (text string) {
	text += fmt.Sprintf("% 5s: %04X\n", "pc", vm.Pc)
	text += fmt.Sprintf("% 5s: %v\n", "equal", vm.Equal)
	text += fmt.Sprintf("% 5s: %04X_%04X\n", "rem", vm.Remainder>>16, vm.Remainder&0xffff)
	for n, value := range vm.Register {
		if value == 0 {
			continue
		}
		reg := fmt.Sprintf("r%d", n)
		text += fmt.Sprintf("% 5s: %04X_%04X (%d)\n", reg, uint32(value)>>16, uint32(value)&0xffff, value)
	}

	return
}

// Run executes until hlt or the end of the program. Faults panic.
func (vm *VM) Run() {
	for vm.Step() {
	}
}

// Step executes a single instruction, returning false when execution
// should stop. Faults panic with an *ErrFault.
func (vm *VM) Step() bool {
	more, err := vm.execute()
	if err != nil {
		panic(err)
	}

	return more
}

// RunChecked executes until hlt, the end of the program, or a fault.
func (vm *VM) RunChecked() (err error) {
	for {
		var more bool
		more, err = vm.StepChecked()
		if err != nil || !more {
			return
		}
	}
}

// StepChecked executes a single instruction. Faults are returned as an
// *ErrFault; the VM state is left as it was at the faulting access.
func (vm *VM) StepChecked() (more bool, err error) {
	return vm.execute()
}

// execute runs the instruction at the program counter.
func (vm *VM) execute() (more bool, err error) {
	if vm.atEnd() {
		return
	}

	pc := vm.Pc
	op := vm.decodeOpcode()

	defer func() {
		if err != nil {
			err = &ErrFault{Pc: pc, Opcode: op, Err: err}
		}
	}()

	if vm.Verbose {
		inst, ierr := isa.DecodeInstruction(vm.Program, int(pc))
		if ierr != nil {
			log.Printf("vm: %04x: %v", pc, ierr)
		} else {
			log.Printf("vm: %04x: %v", pc, inst)
		}
	}

	vm.Ticks++

	switch op {
	case isa.OP_HLT:
		log.Printf("vm: halt encountered at 0x%04x", pc)
		return
	case isa.OP_LOAD:
		var dst uint8
		var value uint16
		dst, err = vm.next8()
		if err != nil {
			return
		}
		value, err = vm.next16()
		if err != nil {
			return
		}
		err = vm.setRegister(dst, int32(value))
	case isa.OP_ADD, isa.OP_SUB, isa.OP_MUL, isa.OP_DIV:
		var a, b int32
		var dst uint8
		a, err = vm.nextRegister()
		if err != nil {
			return
		}
		b, err = vm.nextRegister()
		if err != nil {
			return
		}
		dst, err = vm.next8()
		if err != nil {
			return
		}
		err = vm.doArith(op, a, b, dst)
	case isa.OP_JMP:
		var target int32
		target, err = vm.nextRegister()
		if err != nil {
			return
		}
		vm.Pc = uint(target)
	case isa.OP_JMPF:
		var offset int32
		offset, err = vm.nextRegister()
		if err != nil {
			return
		}
		// Literal add; a negative offset wraps the counter backwards.
		vm.Pc += uint(offset)
	case isa.OP_EQ, isa.OP_NEQ, isa.OP_GT, isa.OP_LT, isa.OP_GTE, isa.OP_LTE:
		var a, b int32
		a, err = vm.nextRegister()
		if err != nil {
			return
		}
		b, err = vm.nextRegister()
		if err != nil {
			return
		}
		vm.Equal = compare(op, a, b)
		// Padding byte.
		_, err = vm.next8()
	case isa.OP_JEQ:
		var target int32
		target, err = vm.nextRegister()
		if err != nil {
			return
		}
		if vm.Equal {
			vm.Pc = uint(target)
		}
	default:
		log.Printf("vm: unknown instruction 0x%02x at 0x%04x", vm.Program[pc], pc)
	}

	if err != nil {
		return
	}

	more = true
	return
}

// decodeOpcode decodes the byte at the program counter and advances past it.
// The caller has already checked the counter.
func (vm *VM) decodeOpcode() (op isa.Opcode) {
	op = isa.Decode(vm.Program[vm.Pc])
	vm.Pc++
	return
}

// next8 consumes one operand byte.
func (vm *VM) next8() (value uint8, err error) {
	if vm.atEnd() {
		err = ErrProgramOverrun
		return
	}

	value = vm.Program[vm.Pc]
	vm.Pc++
	return
}

// next16 consumes a big-endian 16-bit operand.
func (vm *VM) next16() (value uint16, err error) {
	hi, err := vm.next8()
	if err != nil {
		return
	}
	lo, err := vm.next8()
	if err != nil {
		return
	}

	value = (uint16(hi) << 8) | uint16(lo)
	if vm.Verbose {
		log.Printf("vm: imm16 %d", value)
	}

	return
}

// nextRegister consumes a register index operand and returns that
// register's value.
func (vm *VM) nextRegister() (value int32, err error) {
	index, err := vm.next8()
	if err != nil {
		return
	}

	return vm.getRegister(index)
}

// getRegister is the bounds-checked register read.
func (vm *VM) getRegister(index uint8) (value int32, err error) {
	if int(index) >= len(vm.Register) {
		err = errors.Join(ErrRegisterIndex, ErrRegister(index))
		return
	}

	value = vm.Register[index]
	return
}

// setRegister is the bounds-checked register write.
func (vm *VM) setRegister(index uint8, value int32) (err error) {
	if int(index) >= len(vm.Register) {
		err = errors.Join(ErrRegisterIndex, ErrRegister(index))
		return
	}

	vm.Register[index] = value
	return
}

// doArith performs dst = a <op> b. Results wrap on overflow.
func (vm *VM) doArith(op isa.Opcode, a, b int32, dst uint8) (err error) {
	var output int32

	switch op {
	case isa.OP_ADD:
		output = a + b
	case isa.OP_SUB:
		output = a - b
	case isa.OP_MUL:
		output = a * b
	case isa.OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		if a == math.MinInt32 && b == -1 {
			err = ErrDivideOverflow
			return
		}
		output = a / b
		err = vm.setRegister(dst, output)
		if err != nil {
			return
		}
		// Signed remainder, reinterpreted as unsigned.
		vm.Remainder = uint32(a % b)
		return
	}

	err = vm.setRegister(dst, output)
	return
}

// compare evaluates a comparison opcode.
func compare(op isa.Opcode, a, b int32) bool {
	switch op {
	case isa.OP_EQ:
		return a == b
	case isa.OP_NEQ:
		return a != b
	case isa.OP_GT:
		return a > b
	case isa.OP_LT:
		return a < b
	case isa.OP_GTE:
		return a >= b
	case isa.OP_LTE:
		return a <= b
	}

	panic(fmt.Sprintf("vm: %v is not a comparison", op))
}
