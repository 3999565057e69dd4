package asm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	ObjectMagic   = "RVMO"
	ObjectVersion = 1
)

// object is the on-disk form of a Program, keeping the source line
// attribution alongside the bytes.
type object struct {
	Magic   string       `cbor:"1,keyasint"`
	Version int          `cbor:"2,keyasint"`
	Lines   []objectLine `cbor:"3,keyasint,omitempty"`
}

type objectLine struct {
	LineNo int      `cbor:"1,keyasint"`
	Pc     int      `cbor:"2,keyasint"`
	Words  []string `cbor:"3,keyasint,omitempty"`
	Bytes  []byte   `cbor:"4,keyasint"`
}

var objectEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("asm: failed to create CBOR enc mode: %v", err))
	}
	objectEncMode = em
}

// MarshalObject serializes a Program, with its line information, to CBOR.
// Labels are already linked, so they are not kept.
func MarshalObject(prog *Program) ([]byte, error) {
	obj := object{
		Magic:   ObjectMagic,
		Version: ObjectVersion,
	}
	for _, line := range prog.Lines {
		obj.Lines = append(obj.Lines, objectLine{
			LineNo: line.LineNo,
			Pc:     line.Pc,
			Words:  line.Words,
			Bytes:  line.Bytes,
		})
	}

	return objectEncMode.Marshal(&obj)
}

// UnmarshalObject deserializes a Program from CBOR.
func UnmarshalObject(data []byte) (*Program, error) {
	var obj object
	if err := cbor.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("asm: unmarshal object: %w", err)
	}
	if obj.Magic != ObjectMagic {
		return nil, ErrObjectMagic
	}
	if obj.Version != ObjectVersion {
		return nil, ErrObjectVersion
	}

	prog := &Program{}
	pc := 0
	for _, ol := range obj.Lines {
		if ol.Pc != pc {
			return nil, ErrObjectLayout
		}
		prog.Lines = append(prog.Lines, Line{
			LineNo: ol.LineNo,
			Pc:     ol.Pc,
			Words:  ol.Words,
			Bytes:  ol.Bytes,
		})
		pc += len(ol.Bytes)
	}

	return prog, nil
}
