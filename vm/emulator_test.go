package leg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func assembleAndRun(t *testing.T, source string, input []byte) (*State, []byte) {
	t.Helper()
	asm, err := Assemble(source)
	require.NoError(t, err)

	state, err := NewEmulator(asm.Binary)
	require.NoError(t, err)
	if input != nil {
		state.SetInput(input)
	}

	output, err := state.RunToHalt()
	require.NoError(t, err)
	return state, output
}

func TestEmulatorHelloWorldViaRamLoop(t *testing.T) {
	source := `
.consts
ZERO 0

.data 0
msg 'Hi' msg_len

.code
start:
	cp ZERO r0
	jamv loop
loop:
	ld r0 r1
	cp r1 out
	add r0 aor r0
	jplt r0 msg_len
	halt

.entry start
`
	_, output := assembleAndRun(t, source, nil)
	require.Equal(t, []byte{'H', 'i'}, output)
}

func TestEmulatorHelloWorld(t *testing.T) {
	source := `
.data 0
msg 'hello, world' msg_len

.code
start:
	cp 0 r0
loop:
	jamv done
	jpge r0 msg_len
	ld r0 r1
	cp r1 out
	add r0 aor r0
	jamv loop
	jp
done:
	cp 10 out
	halt

.entry start
`
	_, output := assembleAndRun(t, source, nil)
	require.Equal(t, []byte("hello, world\n"), output)
}

func TestEmulatorFibonacci(t *testing.T) {
	source := `
.consts
N 10

.code
start:
	cp 1 r0        ; a
	cp 1 r1        ; b
	cp 0 r2        ; i
	jamv loop
loop:
	st r2 r0       ; ram[i] = a
	add r0 r1 r3
	cp r1 r0
	cp r3 r1
	add r2 aor r2
	jplt r2 N
	halt

.entry start
`
	state, _ := assembleAndRun(t, source, nil)
	require.Equal(t, []byte{1, 1, 2, 3, 5, 8, 13, 21, 34, 55}, state.RAM[:10])
}

const selectionSortSource = `
.consts
N 16
NM1 15

.data 0
arr [5, 3, 15, 0, 9, 1, 12, 7, 11, 2, 14, 4, 8, 10, 6, 13]

.code
start:
	cp 0 r0             ; i
outer:
	jamv done
	jpge r0 NM1
	cp r0 r1            ; m = i
	add r0 aor r2       ; j = i + 1
inner:
	jamv swap
	jpge r2 N
	ld r2 r3            ; ram[j]
	ld r1 r4            ; ram[m]
	jamv next
	jpge r3 r4
	cp r2 r1            ; m = j
next:
	add r2 aor r2
	jamv inner
	jp
swap:
	ld r0 r3            ; tmp = ram[i]
	ld r1 r4
	st r0 r4            ; ram[i] = ram[m]
	st r1 r3            ; ram[m] = tmp
	add r0 aor r0
	jamv outer
	jp
done:
	halt

.entry start
`

func TestEmulatorSelectionSort(t *testing.T) {
	state, _ := assembleAndRun(t, selectionSortSource, nil)

	want := make([]byte, 16)
	for i := range want {
		want[i] = byte(i)
	}
	require.Equal(t, want, state.RAM[:16])
}

func TestEmulatorSixteenBitCall(t *testing.T) {
	// Pad the code past offset 255 so the call target genuinely needs
	// both address bytes of the instruction word.
	var b strings.Builder
	b.WriteString(".code\nstart:\n\tfpush 2\n\tfpush 3\n\tcall addfn\n\tcp r2 out\n\thalt\n")
	for i := 0; i < 70; i++ {
		b.WriteString("\tnop\n")
	}
	b.WriteString("addfn:\n\tfpop r0\n\tfpop r1\n\tadd r0 r1 r2\n\tret\n\n.entry start\n")

	asm, err := Assemble(b.String())
	require.NoError(t, err)
	require.Greater(t, asm.Labels["addfn"], uint16(0xFF))

	state, err := NewEmulator(asm.Binary)
	require.NoError(t, err)
	output, err := state.RunToHalt()
	require.NoError(t, err)
	require.Equal(t, []byte{5}, output)
}

func TestEmulatorDeterministicRuns(t *testing.T) {
	first, firstOut := assembleAndRun(t, selectionSortSource, nil)
	second, secondOut := assembleAndRun(t, selectionSortSource, nil)

	require.Equal(t, firstOut, secondOut)
	require.Equal(t, first.RAM, second.RAM)
}

func TestEmulatorInputEchoPlusOne(t *testing.T) {
	source := `
.code
start:
	cp 3 r0
loop:
	jamv done
	jpeq r0 azr
	cp in r1
	add r1 aor r1
	cp r1 out
	sub r0 aor r0
	jamv loop
	jp
done:
	halt

.entry start
`
	_, output := assembleAndRun(t, source, []byte{0, 1, 2})
	require.Equal(t, []byte{1, 2, 3}, output)
}

func TestEmulatorStackDiscipline(t *testing.T) {
	source := `
.code
start:
	push 1
	push 2
	push 3
	pop r0
	pop r1
	pop r2
	cp r0 out
	cp r1 out
	cp r2 out
	halt

.entry start
`
	_, output := assembleAndRun(t, source, nil)
	require.Equal(t, []byte{3, 2, 1}, output)
}

func TestEmulatorAluAndCarry(t *testing.T) {
	source := `
.code
start:
	cp 200 r0
	cp 100 r1
	add r0 r1 r2
	mvc r3
	cp r2 out
	cp r3 out
	halt

.entry start
`
	_, output := assembleAndRun(t, source, nil)
	require.Equal(t, []byte{44, 1}, output) // 300 mod 256 = 44, carry set
}

func TestEmulatorDivisionByZeroIsFatal(t *testing.T) {
	source := `
.code
start:
	cp 1 r0
	cp azr r1
	div r0 r1 r2
	halt

.entry start
`
	asm, err := Assemble(source)
	require.NoError(t, err)
	state, err := NewEmulator(asm.Binary)
	require.NoError(t, err)

	_, err = state.RunToHalt()
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEmulatorAlreadyHalted(t *testing.T) {
	state, err := NewEmulator([]byte{byte(copyStaticHeader), 0, 0, 4, byte(OpHalt), 0, 0, 0})
	require.NoError(t, err)

	_, err = state.RunToHalt()
	require.NoError(t, err)
	require.True(t, state.Halted)

	err = state.Tick()
	require.ErrorIs(t, err, ErrAlreadyHalted)
}

func TestEmulatorRejectsBadHeader(t *testing.T) {
	_, err := NewEmulator([]byte{0xFF, 0, 0, 0})
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestEmulatorStaticDataCopiedIntoRAM(t *testing.T) {
	source := `
.data 2
greeting 'Yo'

.code
start:
	halt

.entry start
`
	asm, err := Assemble(source)
	require.NoError(t, err)
	state, err := NewEmulator(asm.Binary)
	require.NoError(t, err)

	require.Equal(t, byte('Y'), state.RAM[2])
	require.Equal(t, byte('o'), state.RAM[3])
}
