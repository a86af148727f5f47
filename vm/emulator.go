package leg

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sentinel errors surfaced by the emulator. Callers are expected to
// compare against these with errors.Is.
var (
	ErrBadHeader      = errors.New("bad-header")
	ErrAlreadyHalted  = errors.New("already-halted")
	ErrDivisionByZero = errors.New("division-by-zero")
)

// numTier1Registers is the size of the operand-addressable register
// file (r0..r11, in/out, aor, azr, fss).
const numTier1Registers = 16

// Register indices with special semantics.
const (
	regInOut = 12
	regAOR   = 13
	regAZR   = 14
	regFSS   = 15
)

// registers holds the tier-1 file plus the two registers that live
// outside it and are reachable only through specific opcodes.
type registers struct {
	tier1       [numTier1Registers]byte
	carry       bool
	jumpAddress uint16
}

// knownOpcodes is the set of opcode codes the emulator can dispatch.
// Anything else (including the reserved copystatic header code, if it
// shows up mid-program) is tolerated as a no-op that advances PC.
var knownOpcodes = func() map[Opcode]bool {
	m := make(map[Opcode]bool, len(mnemonics))
	for _, op := range mnemonics {
		m[op] = true
	}
	return m
}()

// State is the full emulator state: the loaded program, program
// counter, RAM, the three stacks, the register file, halted flag, and
// the I/O channels.
type State struct {
	Program []byte
	PC      uint16
	RAM     [ramSize]byte

	stack      []byte   // data stack (push/pop), LIFO
	fCallStack []uint16 // function return addresses (call/ret), LIFO
	fArgsStack []byte   // function argument stack (fpush/fpop), LIFO

	registers registers
	Halted    bool

	output *byte // valid only for the tick that produced it
	input  []byte
}

// NewEmulator loads a binary image (header + static data + code),
// copies the static data into RAM at its declared start address, and
// points PC at the entrypoint.
func NewEmulator(program []byte) (*State, error) {
	if len(program) < instructionBytes {
		return nil, errors.Wrap(ErrBadHeader, "program shorter than the 4-byte header")
	}
	if Opcode(program[0]) != copyStaticHeader {
		return nil, errors.Wrapf(ErrBadHeader, "byte 0 is 0x%02x, want 0x%02x", program[0], byte(copyStaticHeader))
	}

	dataLength := int(program[1])
	dataMemStart := int(program[2])
	entrypointLow := program[3]

	if 4+dataLength > len(program) {
		return nil, errors.Wrap(ErrBadHeader, "declared data length overruns the program")
	}
	if dataMemStart+dataLength > ramSize {
		return nil, errors.Wrap(ErrBadHeader, "static data overruns RAM")
	}

	s := &State{Program: program, PC: uint16(entrypointLow)}
	copy(s.RAM[dataMemStart:dataMemStart+dataLength], program[4:4+dataLength])
	return s, nil
}

// SetInput seeds the emulator's input queue. The slice is stored
// reversed internally so that successive pops yield the caller's
// original order.
func (s *State) SetInput(input []byte) {
	s.input = make([]byte, len(input))
	for i, b := range input {
		s.input[len(input)-1-i] = b
	}
}

// popInput dequeues the oldest input byte, or 0 if the queue is empty.
func (s *State) popInput() byte {
	if len(s.input) == 0 {
		return 0
	}
	b := s.input[len(s.input)-1]
	s.input = s.input[:len(s.input)-1]
	return b
}

// fetch reads a tier-1 register: in/out dequeues an input byte, aor
// always reads 1, azr always reads 0, anything out of range reads 0.
func (s *State) fetch(r byte) byte {
	switch {
	case r <= 11, r == regFSS:
		return s.registers.tier1[r]
	case r == regInOut:
		return s.popInput()
	case r == regAOR:
		return 1
	case r == regAZR:
		return 0
	default:
		return 0
	}
}

// write stores into a tier-1 register: in/out latches the byte into
// the output cell, the constant registers silently drop the write.
func (s *State) write(r byte, v byte) {
	switch {
	case r <= 11, r == regFSS:
		s.registers.tier1[r] = v
	case r == regInOut:
		out := v
		s.output = &out
	default:
		// aor, azr, and anything else: writes are ignored
	}
}

func popByte(stack []byte) ([]byte, byte) {
	if len(stack) == 0 {
		return stack, 0
	}
	return stack[:len(stack)-1], stack[len(stack)-1]
}

func popAddr(stack []uint16) ([]uint16, uint16) {
	if len(stack) == 0 {
		return stack, 0
	}
	return stack[:len(stack)-1], stack[len(stack)-1]
}

// resolveSlot reads one of an instruction's first two operand slots:
// the immediate byte directly, or a register fetch of the 4-bit
// register code it names. Returns ok=false if imm is false and the
// byte doesn't name a valid register.
func (s *State) resolveSlot(imm bool, raw byte) (value byte, ok bool) {
	if imm {
		return raw, true
	}
	if raw >= numTier1Registers {
		return 0, false
	}
	return s.fetch(raw), true
}

// Tick executes exactly one instruction. It is a fatal error to call
// Tick on an already-halted emulator.
func (s *State) Tick() error {
	if s.Halted {
		return ErrAlreadyHalted
	}
	s.output = nil

	currentPC := s.PC
	var instr [instructionBytes]byte
	if int(currentPC)+instructionBytes <= len(s.Program) {
		copy(instr[:], s.Program[currentPC:currentPC+instructionBytes])
	}
	// Else: PC ran past the program; instr stays the null instruction,
	// whose opcode 0 is not a known opcode, so the tick just advances PC.

	opcodeByte := instr[0]
	opcodeCode := Opcode(opcodeByte & 0x3F)
	imm1 := opcodeByte&0x80 != 0
	imm2 := opcodeByte&0x40 != 0

	if !knownOpcodes[opcodeCode] {
		s.PC += instructionBytes
		return nil
	}

	operand1, ok := s.resolveSlot(imm1, instr[1])
	if !ok {
		s.PC += instructionBytes
		return nil
	}
	operand2, ok := s.resolveSlot(imm2, instr[2])
	if !ok {
		s.PC += instructionBytes
		return nil
	}

	logrus.WithFields(logrus.Fields{"pc": currentPC, "op": opcodeCode}).Debug("tick")

	switch opcodeCode.family() {
	case familyCompute:
		res := alu(opcodeByte, operand1, operand2)
		s.write(instr[3], res.out)
		s.registers.carry = res.carry

	case familyShift:
		s.write(instr[3], shift(opcodeByte, operand1, operand2))

	case familyArithSup:
		switch opcodeCode {
		case OpDiv:
			if operand2 == 0 {
				return ErrDivisionByZero
			}
			s.write(instr[3], operand1/operand2)
		case OpMod:
			if operand2 == 0 {
				return ErrDivisionByZero
			}
			s.write(instr[3], operand1%operand2)
		case OpCAdd:
			sum1 := uint16(operand1) + uint16(operand2)
			carry1 := sum1 >= 0x100
			sum2 := sum1 + boolToUint16(s.registers.carry)
			carry2 := sum2 >= 0x100
			s.write(instr[3], byte(sum2))
			s.registers.carry = carry1 || carry2
		case OpAnc:
			s.write(instr[3], operand1+operand2)
		case OpSnc:
			s.write(instr[3], operand1-operand2)
		case OpMvc:
			s.write(instr[3], boolToByte(s.registers.carry))
		}

	case familyCondJump:
		if jumpCondition(opcodeByte, operand1, operand2) {
			s.PC = s.registers.jumpAddress
			return nil
		}

	case familyMemory:
		switch opcodeCode {
		case OpLd:
			s.write(instr[2], s.RAM[operand1])
		case OpSt:
			s.RAM[operand1] = s.fetch(instr[2])
		}

	case familyStack:
		switch opcodeCode {
		case OpPush:
			s.stack = append(s.stack, operand1)
		case OpPop:
			var v byte
			s.stack, v = popByte(s.stack)
			s.write(instr[1], v)
		}

	case familyFunction:
		switch opcodeCode {
		case OpCall:
			s.fCallStack = append(s.fCallStack, currentPC+instructionBytes)
			s.PC = binary.LittleEndian.Uint16([]byte{instr[2], instr[3]})
			return nil
		case OpRet:
			var addr uint16
			s.fCallStack, addr = popAddr(s.fCallStack)
			s.PC = addr
			return nil
		case OpFPush:
			s.fArgsStack = append(s.fArgsStack, operand1)
		case OpFPop:
			var v byte
			s.fArgsStack, v = popByte(s.fArgsStack)
			s.write(instr[1], v)
		}

	case familyMisc:
		switch opcodeCode {
		case OpHalt:
			s.Halted = true
		case OpCp:
			s.write(instr[3], operand1)
		case OpJamv:
			s.registers.jumpAddress = binary.LittleEndian.Uint16([]byte{instr[2], instr[3]})
		case OpNop:
			// no operation
		}
	}

	s.PC += instructionBytes
	return nil
}

// RunToHalt runs Tick in a loop, accumulating every byte written to
// the output register, until the program halts.
func (s *State) RunToHalt() ([]byte, error) {
	var output []byte
	for !s.Halted {
		if err := s.Tick(); err != nil {
			return output, err
		}
		if s.output != nil {
			output = append(output, *s.output)
		}
	}
	return output, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func boolToUint16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
