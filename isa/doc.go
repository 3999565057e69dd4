// Package isa defines the regvm instruction set.
//
// Every instruction is a single opcode byte followed by a fixed number of
// operand bytes. Operands are register indices (r0-r31) or, for load, a
// big-endian 16-bit immediate. Bytes that do not name an opcode decode to
// OP_IGL instead of failing.
package isa
