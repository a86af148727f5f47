package leg

import "strings"

// Opcode is LEG's 6-bit instruction code. Its bit layout within the
// instruction's first byte is MM TTT SSS: MM is the immediate-mode mask
// (set elsewhere, not part of Opcode itself), TTT is the family
// (opcodeFamily), SSS is the subtype within that family.
type Opcode byte

// copyStaticHeader is the reserved Misc-family code for the binary's
// header instruction. It is never emitted by a user-written mnemonic.
const copyStaticHeader Opcode = 0b000_001

const (
	// Compute family (TTT = 001)
	OpAdd  Opcode = 0b001_000
	OpSub  Opcode = 0b001_001
	OpAnd  Opcode = 0b001_010
	OpOr   Opcode = 0b001_011
	OpNot  Opcode = 0b001_100
	OpXor  Opcode = 0b001_101
	OpMulL Opcode = 0b001_110
	OpMulH Opcode = 0b001_111

	// Shift family (TTT = 010)
	OpShl  Opcode = 0b010_000
	OpShr  Opcode = 0b010_001
	OpWShl Opcode = 0b010_010
	OpWShr Opcode = 0b010_011

	// Arithmetic supplementary family (TTT = 011)
	OpDiv  Opcode = 0b011_000
	OpMod  Opcode = 0b011_001
	OpCAdd Opcode = 0b011_010
	OpAnc  Opcode = 0b011_011
	OpSnc  Opcode = 0b011_100
	OpMvc  Opcode = 0b011_101

	// Conditional jump family (TTT = 100)
	OpJpEq Opcode = 0b100_001
	OpJpLt Opcode = 0b100_010
	OpJpLe Opcode = 0b100_011
	OpJp   Opcode = 0b100_100
	OpJpNe Opcode = 0b100_101
	OpJpGe Opcode = 0b100_110
	OpJpGt Opcode = 0b100_111

	// Memory family (TTT = 101)
	OpLd Opcode = 0b101_000
	OpSt Opcode = 0b101_001

	// Stack family (TTT = 110)
	OpPush Opcode = 0b110_000
	OpPop  Opcode = 0b110_001

	// Function family (TTT = 111)
	OpCall  Opcode = 0b111_000
	OpRet   Opcode = 0b111_001
	OpFPush Opcode = 0b111_010
	OpFPop  Opcode = 0b111_011

	// Misc family (TTT = 000)
	OpHalt Opcode = 0b000_010
	OpCp   Opcode = 0b000_011
	OpJamv Opcode = 0b000_100
	OpNop  Opcode = 0b000_101
)

// opcodeFamily is the high 3 bits of an Opcode.
type opcodeFamily byte

const (
	familyMisc     opcodeFamily = 0b000
	familyCompute  opcodeFamily = 0b001
	familyShift    opcodeFamily = 0b010
	familyArithSup opcodeFamily = 0b011
	familyCondJump opcodeFamily = 0b100
	familyMemory   opcodeFamily = 0b101
	familyStack    opcodeFamily = 0b110
	familyFunction opcodeFamily = 0b111
)

const (
	opcodeFamilyShift = 3
	opcodeSubtypeMask = 0b111
)

func (o Opcode) family() opcodeFamily { return opcodeFamily((byte(o) >> opcodeFamilyShift) & 0b111) }
func (o Opcode) subtype() byte        { return byte(o) & opcodeSubtypeMask }

// mnemonics maps each user-writable mnemonic (lowercase) to its opcode,
// including aliases (cp, ld, jamv, ret, mull, mulh).
var mnemonics = map[string]Opcode{
	"add": OpAdd, "sub": OpSub, "and": OpAnd, "or": OpOr, "not": OpNot, "xor": OpXor,
	"mull": OpMulL, "mulh": OpMulH,

	"shl": OpShl, "shr": OpShr, "wshl": OpWShl, "wshr": OpWShr,

	"div": OpDiv, "mod": OpMod, "cadd": OpCAdd, "anc": OpAnc, "snc": OpSnc, "mvc": OpMvc,

	"jpeq": OpJpEq, "jplt": OpJpLt, "jple": OpJpLe, "jp": OpJp,
	"jpne": OpJpNe, "jpge": OpJpGe, "jpgt": OpJpGt,

	"ld": OpLd, "st": OpSt,

	"push": OpPush, "pop": OpPop,

	"call": OpCall, "ret": OpRet, "fpush": OpFPush, "fpop": OpFPop,

	"halt": OpHalt, "cp": OpCp, "jamv": OpJamv, "nop": OpNop,
}

// mnemonicNames maps back from opcode to its mnemonic (the one spelling
// mnemonics accepts for it), used for annotated output and error messages.
var mnemonicNames = map[Opcode]string{
	OpAdd: "add", OpSub: "sub", OpAnd: "and", OpOr: "or", OpNot: "not", OpXor: "xor",
	OpMulL: "mull", OpMulH: "mulh",
	OpShl: "shl", OpShr: "shr", OpWShl: "wshl", OpWShr: "wshr",
	OpDiv: "div", OpMod: "mod", OpCAdd: "cadd", OpAnc: "anc", OpSnc: "snc", OpMvc: "mvc",
	OpJpEq: "jpeq", OpJpLt: "jplt", OpJpLe: "jple", OpJp: "jp",
	OpJpNe: "jpne", OpJpGe: "jpge", OpJpGt: "jpgt",
	OpLd: "ld", OpSt: "st",
	OpPush: "push", OpPop: "pop",
	OpCall: "call", OpRet: "ret", OpFPush: "fpush", OpFPop: "fpop",
	OpHalt: "halt", OpCp: "cp", OpJamv: "jamv", OpNop: "nop",
}

func (o Opcode) String() string {
	if s, ok := mnemonicNames[o]; ok {
		return s
	}
	return "?unknown?"
}

// lookupMnemonic resolves a source-text mnemonic (case-insensitive) to
// its Opcode.
func lookupMnemonic(s string) (Opcode, bool) {
	op, ok := mnemonics[strings.ToLower(s)]
	return op, ok
}

// operandSymbols maps the 16 register names (case-insensitive) to their
// 4-bit operand code. "in" and "out" both name register 12.
var operandSymbols = map[string]byte{
	"r0": 0, "r1": 1, "r2": 2, "r3": 3, "r4": 4, "r5": 5,
	"r6": 6, "r7": 7, "r8": 8, "r9": 9, "r10": 10, "r11": 11,
	"in": 12, "out": 12,
	"aor": 13,
	"azr": 14,
	"fss": 15,
}

// lookupRegister resolves a source-text register name (case-insensitive)
// to its 4-bit operand code.
func lookupRegister(s string) (byte, bool) {
	r, ok := operandSymbols[strings.ToLower(s)]
	return r, ok
}

// slotLayout describes which of an instruction's three operand tokens
// (1-indexed; 0 means "not used") land in instruction bytes 1, 2, and 3.
// Unused bytes are always emitted as 0.
type slotLayout struct {
	slot1, slot2, slot3 int
}

// opcodeLayouts gives the operand-to-slot mapping for every opcode
// whose operands resolve one token to one byte. call/jamv are handled
// separately since their sole operand is always a label resolved to a
// 16-bit little-endian immediate across slots 2 and 3.
var opcodeLayouts = map[Opcode]slotLayout{
	OpAdd: {1, 2, 3}, OpSub: {1, 2, 3}, OpAnd: {1, 2, 3}, OpOr: {1, 2, 3},
	OpNot: {1, 2, 3}, OpXor: {1, 2, 3}, OpMulL: {1, 2, 3}, OpMulH: {1, 2, 3},

	OpShl: {1, 2, 3}, OpShr: {1, 2, 3}, OpWShl: {1, 2, 3}, OpWShr: {1, 2, 3},

	OpDiv: {1, 2, 3}, OpMod: {1, 2, 3}, OpCAdd: {1, 2, 3}, OpAnc: {1, 2, 3}, OpSnc: {1, 2, 3},
	OpMvc: {0, 0, 1},

	OpJpEq: {1, 2, 0}, OpJpLt: {1, 2, 0}, OpJpLe: {1, 2, 0}, OpJp: {0, 0, 0},
	OpJpNe: {1, 2, 0}, OpJpGe: {1, 2, 0}, OpJpGt: {1, 2, 0},

	OpLd: {1, 2, 0}, OpSt: {1, 2, 0},

	OpPush: {1, 0, 0}, OpPop: {1, 0, 0},

	OpRet: {0, 0, 0}, OpFPush: {1, 0, 0}, OpFPop: {1, 0, 0},

	OpHalt: {0, 0, 0}, OpCp: {1, 0, 2}, OpNop: {0, 0, 0},
}

// numOperands returns how many operand tokens the source text supplies
// for this opcode (used to validate line arity).
func (o Opcode) numOperands() int {
	switch o {
	case OpCall, OpJamv:
		return 1
	}
	if l, ok := opcodeLayouts[o]; ok {
		n := 0
		for _, s := range []int{l.slot1, l.slot2, l.slot3} {
			if s != 0 {
				n++
			}
		}
		return n
	}
	return 0
}
