// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package asm is a single pass macro assembler for regvm programs.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/regvm/isa"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Assembler is a single pass macro assembler for regvm.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine  map[string]string   // Predefines
	expansions int                 // Macro expansions, for @ label mangling.
	Label      map[string]int      // Map of labels to program offsets.
	Equate     map[string]string   // Map of equates.
	Macro      map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate, for all
// following calls to Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrImmediateRange
		return
	}
	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// register parses a register name, r0 through r31.
func (asm *Assembler) register(word string) (reg uint8, err error) {
	if !strings.HasPrefix(word, "r") {
		err = ErrRegisterInvalid(word)
		return
	}

	n, perr := strconv.ParseUint(word[1:], 10, 8)
	if perr != nil || n >= isa.REGISTER_COUNT {
		err = ErrRegisterInvalid(word)
		return
	}

	reg = uint8(n)
	return
}

// registers parses exactly count register names.
func (asm *Assembler) registers(words []string, count int) (regs []uint8, err error) {
	if len(words) < count {
		err = ErrOpcodeMissing
		return
	}
	if len(words) > count {
		err = ErrOpcodeExtraArgs
		return
	}

	for _, word := range words {
		var reg uint8
		reg, err = asm.register(word)
		if err != nil {
			return
		}
		regs = append(regs, reg)
	}

	return
}

// immediate16 parses a 16-bit value. A word that is not a value but
// could be a label is returned as link, to be resolved later.
func (asm *Assembler) immediate16(word string) (value uint16, link string, err error) {
	v32, err := asm.valueOf(word)
	if err != nil {
		if reLabel.MatchString(word) {
			link = word
			err = nil
		}
		return
	}

	if v32 > 0xffff {
		err = ErrImmediateRange
		return
	}

	value = uint16(v32)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeUint(uint(value32))
	}
	for key, pc := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(pc)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine expands a single line into words, handling equates, labels
// and macros.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reLabel.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.currentPc()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentPc gets the offset of the next emitted byte.
func (asm *Assembler) currentPc() int {
	if len(asm.Lines) == 0 {
		return 0
	}

	last := asm.Lines[len(asm.Lines)-1]

	return last.Pc + len(last.Bytes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Lines = asm.Lines[:0]
	asm.expansions = 0
	asm.Label = make(map[string]int, 16)
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(strings.ReplaceAll(text_comment[0], "\t", " "))
		words := slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels into load immediates.
	for n := range asm.Lines {
		ln := &asm.Lines[n]

		if len(ln.LinkLabel) == 0 {
			continue
		}
		label := ln.LinkLabel
		pc, ok := asm.Label[label]
		if !ok {
			lineno = ln.LineNo
			line = strings.Join(ln.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if pc > 0xffff {
			lineno = ln.LineNo
			line = strings.Join(ln.Words, " ")
			err = ErrImmediateRange
			return
		}
		if len(ln.Bytes) != 4 {
			log.Fatalf("asm: unable to link label '%s' to line %d: %v", label, ln.LineNo, ln.Words)
		}
		ln.Bytes[2] = byte(pc >> 8)
		ln.Bytes[3] = byte(pc)
	}

	prog = (&Program{Lines: asm.Lines}).Clone()

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(bytes) == 0 {
			return
		}
		ln := Line{LineNo: lineno, Pc: asm.currentPc(), Words: initial_words, Bytes: bytes, LinkLabel: label}
		asm.Lines = append(asm.Lines, ln)
	}()

	// Alternate syntax substitutions
	switch {
	case len(words) == 1 && words[0] == "halt":
		words = []string{"hlt"}
	default:
		// unchanged
	}

	if words[0] == ".byte" {
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		for _, word := range words[1:] {
			var value uint32
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value > 0xff {
				err = ErrImmediateRange
				return
			}
			bytes = append(bytes, byte(value))
		}
		return
	}

	op, ok := isa.Lookup(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]

	switch {
	case op == isa.OP_HLT:
		if len(args) > 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		bytes = isa.MakeHalt()
	case op == isa.OP_LOAD:
		if len(args) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var dst uint8
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		var value uint16
		value, label, err = asm.immediate16(args[1])
		if err != nil {
			return
		}
		bytes = isa.MakeLoad(dst, value)
	case op.IsArith():
		var regs []uint8
		regs, err = asm.registers(args, 3)
		if err != nil {
			return
		}
		bytes = isa.MakeArith(op, regs[0], regs[1], regs[2])
	case op.IsCompare():
		var regs []uint8
		regs, err = asm.registers(args, 2)
		if err != nil {
			return
		}
		bytes = isa.MakeCompare(op, regs[0], regs[1])
	case op.IsJump():
		var regs []uint8
		regs, err = asm.registers(args, 1)
		if err != nil {
			return
		}
		bytes = isa.MakeJump(op, regs[0])
	default:
		err = ErrOpcodeInvalid
		return
	}

	return
}
