// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ezrec/regvm/asm"
	"github.com/ezrec/regvm/emulator"
	"github.com/ezrec/regvm/isa"
	"github.com/ezrec/regvm/translate"
)

// Object files keep source line information; anything else is a raw binary.
const objectExt = ".robj"

// load reads a raw binary or object file into the emulator.
func load(path string, emu *emulator.Emulator) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if filepath.Ext(path) != objectExt {
		emu.LoadBinary(data)
		return
	}

	prog, err := asm.UnmarshalObject(data)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// save writes the emulator's program as a raw binary or object file.
func save(path string, emu *emulator.Emulator) (err error) {
	data := emu.Program.Binary()
	if filepath.Ext(path) == objectExt {
		data, err = asm.MarshalObject(emu.Program)
		if err != nil {
			return
		}
	}

	return os.WriteFile(path, data, 0o644)
}

// listing writes a disassembly of the program, with source line numbers.
func listing(w io.Writer, emu *emulator.Emulator) {
	for pc, inst := range isa.Disassemble(emu.Program.Binary()) {
		lineno := 0
		dbg := emu.Program.Debug(uint(pc))
		if dbg.Line != nil {
			lineno = dbg.LineNo
		}
		fmt.Fprintf(w, "%04x: %-12s %4d  %v\n", pc, fmt.Sprintf("% x", inst.Bytes()), lineno, inst)
	}
}

// banner describes the loaded program for verbose runs.
func banner(emu *emulator.Emulator) string {
	return fmt.Sprintf("regvm: locale %v, program %d bytes, %d lines",
		translate.Locale(), emu.Program.Len(), len(emu.Program.Lines))
}

func main() {
	var compile string
	var binary string
	var output string
	var list bool
	var config string
	var checked bool
	var verbose bool
	var dump bool

	flag.StringVar(&compile, "c", "", ".rasm file to assemble")
	flag.StringVar(&binary, "b", "", "raw binary or .robj file to load")
	flag.StringVar(&output, "o", "", "Save binary or .robj to file, do not execute")
	flag.BoolVar(&list, "l", false, "Print disassembly listing, do not execute")
	flag.StringVar(&config, "config", "", ".toml configuration file")
	flag.BoolVar(&checked, "checked", false, "Report faults as errors")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&dump, "dump", false, "Dump VM state after execution")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	cfg := &Config{}
	if len(config) != 0 {
		var err error
		cfg, err = LoadConfig(config)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Flags override the configuration file.
	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if !set["v"] {
		verbose = cfg.Verbose
	}
	if !set["checked"] {
		checked = cfg.Checked
	}
	if !set["dump"] {
		dump = cfg.Dump
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Checked = checked
	emu.Equate = cfg.Equates

	switch {
	case len(compile) != 0 && len(binary) != 0:
		log.Fatalf("%v: -c and -b are exclusive", os.Args[0])
	case len(compile) != 0:
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	case len(binary) != 0:
		err := load(binary, emu)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if verbose {
		log.Print(banner(emu))
	}

	if list {
		listing(os.Stdout, emu)
	}

	if len(output) != 0 {
		err := save(output, emu)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
	}

	if list || len(output) != 0 {
		return
	}

	emu.Reset()
	err := emu.Run()
	if dump {
		fmt.Print(emu.VM.String())
	}
	if err != nil {
		log.Fatal(err)
	}
}
