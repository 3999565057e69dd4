package vm

import (
	"errors"

	"github.com/ezrec/regvm/isa"
	"github.com/ezrec/regvm/translate"
)

var f = translate.From

var (
	ErrRegisterIndex  = errors.New(f("register index out of range"))
	ErrProgramOverrun = errors.New(f("program overrun"))
	ErrDivideByZero   = errors.New(f("divide by zero"))
	ErrDivideOverflow = errors.New(f("divide overflow"))
)

// ErrRegister names the register index that faulted.
type ErrRegister uint8

func (er ErrRegister) Error() string {
	return f("register %d invalid", uint8(er))
}

func (er ErrRegister) Is(err error) (ok bool) {
	_, ok = err.(ErrRegister)
	return
}

// ErrFault is an execution fault at a given instruction.
type ErrFault struct {
	Pc     uint       // Offset of the faulting opcode byte.
	Opcode isa.Opcode // Decoded opcode.
	Err    error
}

func (err *ErrFault) Error() string {
	return f("fault at 0x%04x %v: %v", err.Pc, err.Opcode.String(), err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}
