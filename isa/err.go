package isa

import (
	"errors"

	"github.com/ezrec/regvm/translate"
)

var f = translate.From

var (
	ErrTruncated = errors.New(f("instruction truncated"))
)

// ErrInstruction locates a decode failure within a program buffer.
type ErrInstruction struct {
	Offset int
	Opcode Opcode
	Err    error
}

func (err *ErrInstruction) Error() string {
	return f("0x%04x %v %v", err.Offset, err.Opcode.String(), err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}
