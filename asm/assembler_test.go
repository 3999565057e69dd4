package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/regvm/isa"
)

func parse(t *testing.T, program []string) (prog *Program, err error) {
	asm := &Assembler{}
	for key, value := range isa.Defines() {
		asm.Predefine(key, value)
	}
	return asm.Parse(strings.NewReader(strings.Join(program, "\n")))
}

func lineEqual(t *testing.T, expected, lines []Line) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(lines))
	if len(expected) == len(lines) {
		for n := range len(expected) {
			assert.Equal(expected[n], lines[n])
		}
	}
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Lines))
	assert.Equal(0, prog.Len())

	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerOpcodes(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"load r0 500",
		"add r0 r1 r2",
		"sub r3 r4 r5",
		"mul r6 r7 r8",
		"div r9 r10 r11",
		"jmp r12",
		"jmpf r13",
		"eq r14 r15",
		"neq r16 r17",
		"gt r18 r19",
		"lt r20 r21",
		"gte r22 r23",
		"lte r24 r25",
		"jeq r31",
		"hlt",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Line{
		{1, 0, []string{"load", "r0", "500"}, []byte{1, 0, 1, 244}, ""},
		{2, 4, []string{"add", "r0", "r1", "r2"}, []byte{2, 0, 1, 2}, ""},
		{3, 8, []string{"sub", "r3", "r4", "r5"}, []byte{3, 3, 4, 5}, ""},
		{4, 12, []string{"mul", "r6", "r7", "r8"}, []byte{4, 6, 7, 8}, ""},
		{5, 16, []string{"div", "r9", "r10", "r11"}, []byte{5, 9, 10, 11}, ""},
		{6, 20, []string{"jmp", "r12"}, []byte{6, 12}, ""},
		{7, 22, []string{"jmpf", "r13"}, []byte{7, 13}, ""},
		{8, 24, []string{"eq", "r14", "r15"}, []byte{8, 14, 15, 0}, ""},
		{9, 28, []string{"neq", "r16", "r17"}, []byte{9, 16, 17, 0}, ""},
		{10, 32, []string{"gt", "r18", "r19"}, []byte{10, 18, 19, 0}, ""},
		{11, 36, []string{"lt", "r20", "r21"}, []byte{11, 20, 21, 0}, ""},
		{12, 40, []string{"gte", "r22", "r23"}, []byte{12, 22, 23, 0}, ""},
		{13, 44, []string{"lte", "r24", "r25"}, []byte{13, 24, 25, 0}, ""},
		{14, 48, []string{"jeq", "r31"}, []byte{14, 31}, ""},
		{15, 50, []string{"hlt"}, []byte{0}, ""},
	}

	lineEqual(t, expected, prog.Lines)
	assert.Equal(51, prog.Len())
}

func TestAssemblerByte(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".byte 200 0 0 0 ; illegal, then padding",
		".byte 'A' 0x0f",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{200, 0, 0, 0, 65, 15}, prog.Binary())
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".equ CONST_10 0x10",
		".equ ACC r3",
		"load r0 CONST_10",
		"load r1 $(CONST_10 + CONST_10)",
		".equ CONST_30 $(2 * CONST_10 + CONST_10)",
		"load ACC CONST_30",
		"load r2 $(LINENO * 8 + 0x10)",
		"load r4 $(OP_JEQ)",
		"load r5 $(REGISTER_COUNT - 1)",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	assert.Equal([]byte{
		1, 0, 0, 0x10,
		1, 1, 0, 0x20,
		1, 3, 0, 0x30,
		1, 2, 0, 0x48,
		1, 4, 0, 14,
		1, 5, 0, 31,
	}, prog.Binary())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro SET rn value",
		"load rn value",
		".endm",
		".macro SETADD rn a b",
		"SET r30 a",
		"SET r31 b",
		"add r30 r31 rn",
		".endm",
		"SETADD r0 8 8",
		".equ CONST_10 0x10",
		"SETADD r1 CONST_10 $(CONST_10 + 1)",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Line{
		{2, 0, []string{"load", "r30", "8"}, []byte{1, 30, 0, 8}, ""},
		{2, 4, []string{"load", "r31", "8"}, []byte{1, 31, 0, 8}, ""},
		{7, 8, []string{"add", "r30", "r31", "r0"}, []byte{2, 30, 31, 0}, ""},
		{2, 12, []string{"load", "r30", "0x10"}, []byte{1, 30, 0, 0x10}, ""},
		{2, 16, []string{"load", "r31", "0x11"}, []byte{1, 31, 0, 0x11}, ""},
		{7, 20, []string{"add", "r30", "r31", "r1"}, []byte{2, 30, 31, 1}, ""},
	}

	lineEqual(t, expected, prog.Lines)
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"load r1 1",
		"load r2 DONE",
		"load r3 LOOP",
		"LOOP: add r0 r1 r0",
		"load r4 5",
		"eq r0 r4",
		"jeq r2",
		"jmp r3",
		"DONE: END:",
		"hlt",
		"load r5 $(LOOP * 2)",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{1, 2, 0, 28}, prog.Lines[1].Bytes)
	assert.Equal("DONE", prog.Lines[1].LinkLabel)
	assert.Equal([]byte{1, 3, 0, 12}, prog.Lines[2].Bytes)
	assert.Equal([]byte{0}, prog.Lines[8].Bytes)
	assert.Equal(28, prog.Lines[8].Pc)
	assert.Equal([]byte{1, 5, 0, 24}, prog.Lines[9].Bytes)
}

func TestAssemblerMacroLabel(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro SKIP rn",
		"load rn @next",
		"jmp rn",
		".byte 0xff",
		"@next:",
		".endm",
		"SKIP r7",
		"SKIP r8",
	}

	prog, err := parse(t, program)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		1, 7, 0, 7, 6, 7, 0xff,
		1, 8, 0, 14, 6, 8, 0xff,
	}, prog.Binary())
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"bad_opcode", []string{"nop"}, ErrInstructionInvalid, 1},
		{"igl", []string{"hlt", "igl"}, ErrInstructionInvalid, 2},
		{"bad_register", []string{"add r0 r1 r32"}, ErrRegisterInvalid("r32"), 1},
		{"not_register", []string{"jmp 7"}, ErrRegisterInvalid("7"), 1},
		{"missing", []string{"add r0 r1"}, ErrOpcodeMissing, 1},
		{"extra", []string{"eq r0 r1 r2"}, ErrOpcodeExtraArgs, 1},
		{"hlt_extra", []string{"hlt r0"}, ErrOpcodeExtraArgs, 1},
		{"load_range", []string{"load r0 0x10000"}, ErrImmediateRange, 1},
		{"load_negative", []string{"load r0 -1"}, ErrImmediateRange, 1},
		{"byte_range", []string{".byte 256"}, ErrImmediateRange, 1},
		{"load_below_int32", []string{"load r0 -0x80000001"}, ErrImmediateRange, 1},
		{"byte_below_int32", []string{"hlt", ".byte -0x90000000"}, ErrImmediateRange, 2},
		{"load_too_wide", []string{"load r0 0x200000000"}, ErrParseNumber("0x200000000"), 1},
		{"byte_empty", []string{".byte"}, ErrOpcodeMissing, 1},
		{"label_missing", []string{"hlt", "load r0 NOWHERE"}, ErrLabelMissing("NOWHERE"), 2},
		{"label_duplicate", []string{"A: hlt", "A: hlt"}, ErrLabelDuplicate, 2},
		{"equ_syntax", []string{".equ A"}, ErrEquateSyntax, 1},
		{"equ_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate, 2},
		{"macro_lonely", []string{".macro A", "hlt"}, ErrMacroLonely, 2},
		{"endm_lonely", []string{".endm"}, ErrMacroLonelyEndm, 1},
		{"macro_nesting", []string{".macro A", ".macro B"}, ErrMacroNesting, 2},
		{"macro_duplicate", []string{".macro A", ".endm", ".macro A"}, ErrMacroDuplicate, 3},
		{"macro_args", []string{".macro A x", "hlt", ".endm", "A"}, ErrMacroSyntax, 4},
		{"expression", []string{`load r0 $("ab")`}, ErrParseExpression(`"ab"`), 1},
	}

	for _, entry := range table {
		_, err := parse(t, entry.program)
		assert.Error(err, entry.name)
		assert.True(errors.Is(err, entry.err), "%v: %v", entry.name, err)

		var serr *ErrSyntax
		if assert.True(errors.As(err, &serr), entry.name) {
			assert.Equal(entry.lineno, serr.LineNo, entry.name)
		}
	}
}

func TestAssemblerMacroError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro BAD",
		"add r0 r1",
		".endm",
		"BAD",
	}

	_, err := parse(t, program)
	assert.True(errors.Is(err, ErrOpcodeMissing))

	var merr *ErrMacro
	assert.True(errors.As(err, &merr))
	assert.Equal("BAD", merr.Macro)
	assert.Equal(2, merr.Line)
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("LIMIT", "9")

	prog1, err := asm.Parse(strings.NewReader("A: load r0 LIMIT"))
	assert.NoError(err)

	prog2, err := asm.Parse(strings.NewReader("A: load r1 A"))
	assert.NoError(err)

	assert.Equal([]byte{1, 0, 0, 9}, prog1.Binary())
	assert.Equal([]byte{1, 1, 0, 0}, prog2.Binary())
	assert.Equal(0, asm.Label["A"])
}
