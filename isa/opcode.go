package isa

import (
	"fmt"
	"iter"
	"maps"
	"strings"
)

// REGISTER_COUNT is the number of addressable registers.
const REGISTER_COUNT = 32

// Opcode is a decoded operation identifier.
type Opcode uint8

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_HLT  = Opcode(0)  // hlt
	OP_LOAD = Opcode(1)  // load
	OP_ADD  = Opcode(2)  // add
	OP_SUB  = Opcode(3)  // sub
	OP_MUL  = Opcode(4)  // mul
	OP_DIV  = Opcode(5)  // div
	OP_JMP  = Opcode(6)  // jmp
	OP_JMPF = Opcode(7)  // jmpf
	OP_EQ   = Opcode(8)  // eq
	OP_NEQ  = Opcode(9)  // neq
	OP_GT   = Opcode(10) // gt
	OP_LT   = Opcode(11) // lt
	OP_GTE  = Opcode(12) // gte
	OP_LTE  = Opcode(13) // lte
	OP_JEQ  = Opcode(14) // jeq
	OP_IGL  = Opcode(15) // igl
)

// decodeTable is the wire format. Its order must never change.
var decodeTable = [...]Opcode{
	0:  OP_HLT,
	1:  OP_LOAD,
	2:  OP_ADD,
	3:  OP_SUB,
	4:  OP_MUL,
	5:  OP_DIV,
	6:  OP_JMP,
	7:  OP_JMPF,
	8:  OP_EQ,
	9:  OP_NEQ,
	10: OP_GT,
	11: OP_LT,
	12: OP_GTE,
	13: OP_LTE,
	14: OP_JEQ,
}

// Decode maps a raw byte to its opcode. Unmapped bytes are OP_IGL.
func Decode(b byte) Opcode {
	if int(b) < len(decodeTable) {
		return decodeTable[b]
	}
	return OP_IGL
}

// Opcodes iterates over every named opcode, in wire order, excluding OP_IGL.
func Opcodes() iter.Seq[Opcode] {
	return func(yield func(op Opcode) bool) {
		for _, op := range decodeTable {
			if !yield(op) {
				return
			}
		}
	}
}

// Lookup finds an opcode by mnemonic.
func Lookup(mnemonic string) (Opcode, bool) {
	for op := range Opcodes() {
		if op.String() == mnemonic {
			return op, true
		}
	}

	return OP_IGL, false
}

// Operands returns the number of operand bytes following the opcode byte.
func (op Opcode) Operands() int {
	switch op {
	case OP_LOAD:
		return 3
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
		return 3
	case OP_EQ, OP_NEQ, OP_GT, OP_LT, OP_GTE, OP_LTE:
		// The third byte is padding.
		return 3
	case OP_JMP, OP_JMPF, OP_JEQ:
		return 1
	default:
		return 0
	}
}

// IsArith is true for the three-register arithmetic opcodes.
func (op Opcode) IsArith() bool {
	return op >= OP_ADD && op <= OP_DIV
}

// IsCompare is true for the opcodes that set the comparison flag.
func (op Opcode) IsCompare() bool {
	return op >= OP_EQ && op <= OP_LTE
}

// IsJump is true for the opcodes that may rewrite the program counter.
func (op Opcode) IsJump() bool {
	return op == OP_JMP || op == OP_JMPF || op == OP_JEQ
}

// Defines returns an equate for each named opcode, e.g. OP_LOAD = 0x1.
func Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	}
	for op := range Opcodes() {
		defines["OP_"+strings.ToUpper(op.String())] = fmt.Sprintf("%#x", uint8(op))
	}

	return maps.All(defines)
}

// MakeHalt encodes a hlt instruction.
func MakeHalt() []byte {
	return []byte{byte(OP_HLT)}
}

// MakeLoad encodes a load of a 16-bit immediate into a register.
func MakeLoad(reg uint8, value uint16) []byte {
	return []byte{byte(OP_LOAD), reg, byte(value >> 8), byte(value)}
}

// MakeArith encodes dst = a <op> b.
func MakeArith(op Opcode, a, b, dst uint8) []byte {
	if !op.IsArith() {
		panic(fmt.Sprintf("isa: %v is not arithmetic", op))
	}
	return []byte{byte(op), a, b, dst}
}

// MakeCompare encodes a comparison of two registers, including its padding byte.
func MakeCompare(op Opcode, a, b uint8) []byte {
	if !op.IsCompare() {
		panic(fmt.Sprintf("isa: %v is not a comparison", op))
	}
	return []byte{byte(op), a, b, 0}
}

// MakeJump encodes a jump through a register.
func MakeJump(op Opcode, reg uint8) []byte {
	if !op.IsJump() {
		panic(fmt.Sprintf("isa: %v is not a jump", op))
	}
	return []byte{byte(op), reg}
}
