// Package vm implements the regvm execution engine.
//
// The engine holds 32 signed 32-bit registers, a program counter into a
// flat byte program, a remainder register written by div, and a comparison
// flag written by the comparison opcodes and read by jeq.
//
// Faults (bad register index, program overrun, division by zero) panic in
// the default Step/Run mode. StepChecked/RunChecked return them as errors
// instead.
package vm
