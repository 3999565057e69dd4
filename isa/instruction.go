package isa

import (
	"encoding/binary"
	"fmt"
	"iter"
	"strings"
)

// Instruction is one decoded opcode with its raw operand bytes.
type Instruction struct {
	Opcode   Opcode
	Raw      byte   // Opcode byte as it appeared in the program.
	Operands []byte // Operand bytes, len(Operands) == Opcode.Operands().
}

// Len is the encoded size of the instruction in bytes.
func (inst Instruction) Len() int {
	return 1 + len(inst.Operands)
}

// Immediate returns the big-endian immediate of a load.
func (inst Instruction) Immediate() uint16 {
	if inst.Opcode != OP_LOAD || len(inst.Operands) < 3 {
		return 0
	}
	return binary.BigEndian.Uint16(inst.Operands[1:3])
}

// Bytes re-encodes the instruction.
func (inst Instruction) Bytes() []byte {
	return append([]byte{inst.Raw}, inst.Operands...)
}

// String returns the assembly language representation of the instruction.
func (inst Instruction) String() string {
	reg := func(n int) string {
		return fmt.Sprintf("r%d", inst.Operands[n])
	}

	switch {
	case len(inst.Operands) != inst.Opcode.Operands():
		// Partial instruction; fall through to the raw rendering.
	case inst.Opcode == OP_IGL:
		return fmt.Sprintf(".byte 0x%02x", inst.Raw)
	case inst.Opcode == OP_HLT:
		return inst.Opcode.String()
	case inst.Opcode == OP_LOAD:
		return fmt.Sprintf("load %v %d", reg(0), inst.Immediate())
	case inst.Opcode.IsArith():
		return fmt.Sprintf("%v %v %v %v", inst.Opcode, reg(0), reg(1), reg(2))
	case inst.Opcode.IsCompare():
		return fmt.Sprintf("%v %v %v", inst.Opcode, reg(0), reg(1))
	case inst.Opcode.IsJump():
		return fmt.Sprintf("%v %v", inst.Opcode, reg(0))
	}

	words := []string{inst.Opcode.String()}
	for _, b := range inst.Operands {
		words = append(words, fmt.Sprintf("0x%02x", b))
	}
	return strings.Join(words, " ")
}

// DecodeInstruction decodes the instruction starting at offset.
func DecodeInstruction(program []byte, offset int) (inst Instruction, err error) {
	if offset < 0 || offset >= len(program) {
		err = &ErrInstruction{Offset: offset, Opcode: OP_IGL, Err: ErrTruncated}
		return
	}

	inst.Raw = program[offset]
	inst.Opcode = Decode(inst.Raw)

	end := offset + 1 + inst.Opcode.Operands()
	if end > len(program) {
		err = &ErrInstruction{Offset: offset, Opcode: inst.Opcode, Err: ErrTruncated}
		return
	}
	inst.Operands = program[offset+1 : end]

	return
}

// Disassemble walks a program from the start, yielding each instruction
// and its offset. A trailing partial instruction is yielded with its
// available operand bytes only; it is the last item.
func Disassemble(program []byte) iter.Seq2[int, Instruction] {
	return func(yield func(offset int, inst Instruction) bool) {
		for offset := 0; offset < len(program); {
			inst, err := DecodeInstruction(program, offset)
			if err != nil {
				inst.Operands = program[offset+1:]
				yield(offset, inst)
				return
			}
			if !yield(offset, inst) {
				return
			}
			offset += inst.Len()
		}
	}
}
