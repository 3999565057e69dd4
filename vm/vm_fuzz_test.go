package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/regvm/isa"
)

func FuzzVm(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0}, int32(0), int32(0))
	f.Add([]byte{1, 0, 1, 244}, int32(0), int32(0))
	f.Add([]byte{5, 0, 1, 0}, int32(5), int32(0))
	f.Add([]byte{7, 0, 0, 0}, int32(-3), int32(1))
	f.Add([]byte{8, 0, 1, 0, 14, 1}, int32(1), int32(1))
	f.Add([]byte{2, 0, 1, 40}, int32(1), int32(2))

	f.Fuzz(func(t *testing.T, program []byte, r0 int32, r1 int32) {
		assert := assert.New(t)

		vm := New()
		vm.Load(program)
		vm.Register[0] = r0
		vm.Register[1] = r1

		// Bound the run; the program may loop forever.
		for range 1024 {
			pc := vm.Pc
			more, err := vm.StepChecked()
			if err != nil {
				var fault *ErrFault
				assert.True(errors.As(err, &fault))
				assert.Equal(pc, fault.Pc)
				assert.Equal(isa.Decode(program[pc]), fault.Opcode)
				assert.True(errors.Is(err, ErrRegisterIndex) ||
					errors.Is(err, ErrProgramOverrun) ||
					errors.Is(err, ErrDivideByZero) ||
					errors.Is(err, ErrDivideOverflow), err.Error())
				return
			}
			if !more {
				return
			}
			// Every step consumes at least the opcode byte, unless it jumped.
			op := isa.Decode(program[pc])
			if !op.IsJump() {
				assert.Equal(pc+1+uint(op.Operands()), vm.Pc, op.String())
			}
		}
	})
}
