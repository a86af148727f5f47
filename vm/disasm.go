package leg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Disassemble renders an already-assembled binary image back into an
// annotated hex/mnemonic listing: the copystatic header, the static
// data block, and then one row per instruction word decoded back into
// its mnemonic and operand bytes. It's a read-back complement to
// Assemble's Hex output, not a guarantee of round-tripping through
// assembly (register-vs-immediate choices for unused slots can't
// always be recovered from the binary alone).
func Disassemble(program []byte) (string, error) {
	if len(program) < instructionBytes {
		return "", errors.Wrap(ErrBadHeader, "program shorter than the 4-byte header")
	}
	if Opcode(program[0]) != copyStaticHeader {
		return "", errors.Wrapf(ErrBadHeader, "byte 0 is 0x%02x, want 0x%02x", program[0], byte(copyStaticHeader))
	}

	dataLength := int(program[1])
	dataMemStart := program[2]
	entrypoint := program[3]
	if 4+dataLength > len(program) {
		return "", errors.Wrap(ErrBadHeader, "declared data length overruns the program")
	}

	var out strings.Builder
	fmt.Fprintf(&out, "0x%02x 0x%02x 0x%02x 0x%02x # copystatic (data_len=%d data_start=0x%02x entry=0x%02x)\n",
		program[0], program[1], program[2], program[3], dataLength, dataMemStart, entrypoint)

	data := program[4 : 4+dataLength]
	if len(data) == 0 {
		out.WriteString("# data\n")
	} else {
		var row strings.Builder
		for i, b := range data {
			if i > 0 {
				row.WriteByte(' ')
			}
			fmt.Fprintf(&row, "0x%02x", b)
		}
		fmt.Fprintf(&out, "%s # data\n", row.String())
	}

	code := program[4+dataLength:]
	for off := 0; off+instructionBytes <= len(code); off += instructionBytes {
		inst := code[off : off+instructionBytes]
		fmt.Fprintf(&out, "0x%02x 0x%02x 0x%02x 0x%02x # %04d: %s\n",
			inst[0], inst[1], inst[2], inst[3], off, disassembleInstruction(inst))
	}
	if rem := len(code) % instructionBytes; rem != 0 {
		fmt.Fprintf(&out, "# %d trailing byte(s) do not form a complete instruction\n", rem)
	}

	return out.String(), nil
}

// disassembleInstruction renders one 4-byte instruction word as
// "mnemonic operand operand", best-effort: immediate operands print as
// decimal numbers, register operands print as their register code.
func disassembleInstruction(inst []byte) string {
	opcodeByte := inst[0]
	opcodeCode := Opcode(opcodeByte & 0x3F)
	imm1 := opcodeByte&0x80 != 0
	imm2 := opcodeByte&0x40 != 0

	if !knownOpcodes[opcodeCode] {
		return fmt.Sprintf("?unknown-opcode(0x%02x)?", opcodeByte)
	}
	if opcodeCode == OpCall || opcodeCode == OpJamv {
		addr := uint16(inst[2]) | uint16(inst[3])<<8
		return fmt.Sprintf("%s 0x%04x", opcodeCode, addr)
	}

	layout, ok := opcodeLayouts[opcodeCode]
	if !ok {
		return opcodeCode.String()
	}

	operandText := func(slot int, isImm bool) string {
		var raw byte
		switch slot {
		case 1:
			raw = inst[1]
		case 2:
			raw = inst[2]
		case 3:
			raw = inst[3]
		}
		if isImm {
			return fmt.Sprintf("%d", raw)
		}
		return fmt.Sprintf("r%d", raw)
	}

	var parts []string
	parts = append(parts, opcodeCode.String())
	if layout.slot1 != 0 {
		parts = append(parts, operandText(layout.slot1, imm1))
	}
	if layout.slot2 != 0 {
		parts = append(parts, operandText(layout.slot2, imm2))
	}
	if layout.slot3 != 0 {
		// slot 3 is always a raw register destination, never masked
		parts = append(parts, fmt.Sprintf("r%d", inst[3]))
	}
	return strings.Join(parts, " ")
}
