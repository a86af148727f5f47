package leg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// instructionBytes is the fixed width of every LEG instruction word.
const instructionBytes = 4

// ramSize is the size of the emulator's RAM, and the ceiling on
// data_mem_start + data_length.
const ramSize = 256

// Assembled is the product of assembling a source program: the binary
// image, its annotated hex listing, and the resolved label/constant
// tables (useful for tooling and tests).
type Assembled struct {
	Binary []byte
	Hex    string
	Labels map[string]uint16
	Consts map[string]byte
}

// Assemble compiles LEG source text into a binary image plus an
// annotated hex listing: sections are parsed, labels are laid out
// against the code section alone and then shifted past the header and
// static data, and finally each instruction is emitted.
func Assemble(source string) (*Assembled, error) {
	sections, err := parseSections(source)
	if err != nil {
		return nil, err
	}

	consts, err := readConsts(sections)
	if err != nil {
		return nil, err
	}

	codeSection, ok := findSection(sections, "code")
	if !ok {
		return nil, errors.New("missing-required-section: .code")
	}
	labels, err := rawLabelTable(codeSection.Body)
	if err != nil {
		return nil, err
	}

	staticData, dataMemStart, err := readData(sections, consts)
	if err != nil {
		return nil, err
	}
	if int(dataMemStart)+len(staticData) > ramSize {
		return nil, errors.Errorf("data-overflow: %d (start) + %d (length) exceeds %d bytes of RAM", dataMemStart, len(staticData), ramSize)
	}

	offsetCorrection := uint16(instructionBytes + len(staticData))
	for name, off := range labels {
		labels[name] = off + offsetCorrection
	}

	entrySection, ok := findSection(sections, "entry")
	if !ok {
		return nil, errors.New("missing-required-section: .entry")
	}
	if len(entrySection.Args) == 0 {
		return nil, errors.New("section-syntax: .entry requires an entrypoint label argument")
	}
	entryLabel := entrySection.Args[0]
	entryAddr, ok := labels[entryLabel]
	if !ok {
		return nil, errors.Errorf("unknown-label: entrypoint %q", entryLabel)
	}
	if entryAddr > 0xFF {
		return nil, errors.Errorf("entrypoint-out-of-range: %q resolves to 0x%04x, which does not fit in the header's single byte", entryLabel, entryAddr)
	}

	header := []byte{byte(copyStaticHeader), byte(len(staticData)), dataMemStart, byte(entryAddr)}

	var hex strings.Builder
	appendHexRow(&hex, header, "copystatic")
	appendHexRow(&hex, staticData, "data")

	code := make([]byte, 0, len(codeSection.Body)*instructionBytes)
	for _, rawLine := range codeSection.Body {
		line := stripComment(rawLine)
		if line == "" {
			appendHexRow(&hex, nil, rawLine)
			continue
		}
		if strings.HasSuffix(line, ":") {
			appendHexRow(&hex, nil, "# "+strings.TrimSuffix(line, ":")+":")
			continue
		}

		inst, err := emitInstruction(line, consts, labels)
		if err != nil {
			return nil, errors.Wrapf(err, "while assembling %q", line)
		}
		logrus.WithField("line", line).Debugf("asm: %02x %02x %02x %02x", inst[0], inst[1], inst[2], inst[3])

		code = append(code, inst[:]...)
		appendHexRow(&hex, inst[:], line)
	}

	binary := make([]byte, 0, len(header)+len(staticData)+len(code))
	binary = append(binary, header...)
	binary = append(binary, staticData...)
	binary = append(binary, code...)

	return &Assembled{Binary: binary, Hex: hex.String(), Labels: labels, Consts: consts}, nil
}

// appendHexRow formats one row of the annotated listing: the bytes as
// `0xhh` tokens followed by `# comment`, or just `# comment` for a
// zero-byte marker row (header/data block with no bytes, a blank or
// label-only source line).
func appendHexRow(w *strings.Builder, bytes []byte, comment string) {
	if strings.HasPrefix(comment, "#") {
		fmt.Fprintf(w, "%s\n", comment)
		return
	}
	if len(bytes) == 0 {
		fmt.Fprintf(w, "# %s\n", comment)
		return
	}
	var b strings.Builder
	for i, v := range bytes {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "0x%02x", v)
	}
	fmt.Fprintf(w, "%s # %s\n", b.String(), comment)
}

// readConsts reads the optional `.consts` section into a name -> byte
// table.
func readConsts(sections []Section) (map[string]byte, error) {
	consts := make(map[string]byte)
	section, ok := findSection(sections, "consts")
	if !ok {
		return consts, nil
	}
	for _, rawLine := range section.Body {
		line := stripComment(rawLine)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("section-syntax: .consts entry %q must be \"NAME VALUE\"", line)
		}
		v, err := parseU8Literal(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, ".consts entry %q", line)
		}
		consts[fields[0]] = v
	}
	return consts, nil
}

// rawLabelTable walks `.code`'s body lines, ignoring comments and blank
// lines, binding each `label:` line to the current (uncorrected) code
// offset and advancing the offset by instructionBytes for every other
// line.
func rawLabelTable(bodyLines []string) (map[string]uint16, error) {
	labels := make(map[string]uint16)
	var offset uint16
	for _, rawLine := range bodyLines {
		line := stripComment(rawLine)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			if name == "" {
				return nil, errors.New("section-syntax: empty label")
			}
			labels[name] = offset
			continue
		}
		offset += instructionBytes
	}
	return labels, nil
}

// readData reads the optional `.data` section, returning the
// concatenated static-data image and the RAM start address taken from
// the section's first header argument. Constants are populated as a
// side effect: each entry's start address (and, if requested, its
// byte length) is bound into consts.
func readData(sections []Section, consts map[string]byte) ([]byte, byte, error) {
	section, ok := findSection(sections, "data")
	if !ok {
		return nil, 0, nil
	}
	if len(section.Args) == 0 {
		return nil, 0, errors.New("section-syntax: .data requires a mem_start argument")
	}
	memStart, err := parseU8Literal(section.Args[0])
	if err != nil {
		return nil, 0, errors.Wrapf(err, ".data mem_start %q", section.Args[0])
	}

	var data []byte
	addr := memStart
	for _, rawLine := range section.Body {
		line := stripComment(rawLine)
		if line == "" {
			continue
		}
		name, valueText, lengthName, err := splitDataLine(line)
		if err != nil {
			return nil, 0, errors.Wrapf(err, ".data entry %q", line)
		}
		value, err := parseDataValue(valueText)
		if err != nil {
			return nil, 0, errors.Wrapf(err, ".data entry %q", line)
		}

		consts[name] = addr
		if lengthName != "" && lengthName != "_" {
			if len(value.bytes) > 0xFF {
				return nil, 0, errors.Errorf("data-overflow: %q length %d does not fit in a byte", name, len(value.bytes))
			}
			consts[lengthName] = byte(len(value.bytes))
		}

		data = append(data, value.bytes...)
		if int(addr)+len(value.bytes) > ramSize {
			return nil, 0, errors.Errorf("data-overflow: %q overruns RAM at address %d", name, addr)
		}
		addr += byte(len(value.bytes))
	}

	return data, memStart, nil
}

// splitDataLine splits a `.data` body line into its name, its raw
// value text (still needing parseDataValue), and an optional trailing
// length-binding name.
func splitDataLine(line string) (name, valueText, lengthName string, err error) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return "", "", "", errors.Errorf("missing value")
	}
	name = line[:idx]
	rest := strings.TrimSpace(line[idx+1:])
	if rest == "" {
		return "", "", "", errors.Errorf("missing value")
	}

	switch {
	case strings.HasPrefix(rest, "'"):
		i := 1
		for i < len(rest) {
			if rest[i] == '\'' {
				if i+1 < len(rest) && rest[i+1] == '\'' {
					i += 2
					continue
				}
				break
			}
			i++
		}
		if i >= len(rest) {
			return "", "", "", errors.Errorf("unterminated quoted string")
		}
		valueText = rest[:i+1]
		lengthName = strings.TrimSpace(rest[i+1:])
	case strings.HasPrefix(rest, "["):
		j := strings.IndexByte(rest, ']')
		if j < 0 {
			return "", "", "", errors.Errorf("unterminated array literal")
		}
		valueText = rest[:j+1]
		lengthName = strings.TrimSpace(rest[j+1:])
	default:
		fields := strings.Fields(rest)
		valueText = fields[0]
		if len(fields) > 1 {
			lengthName = fields[1]
		}
	}
	return name, valueText, lengthName, nil
}

// emitInstruction assembles one non-label, non-blank `.code` line into
// its 4-byte instruction word.
func emitInstruction(line string, consts map[string]byte, labels map[string]uint16) ([4]byte, error) {
	var inst [4]byte

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return inst, errors.New("missing-operand: empty instruction")
	}
	mnemonicText, operandTexts := fields[0], fields[1:]

	op, ok := lookupMnemonic(mnemonicText)
	if !ok {
		return inst, errors.Errorf("unknown-mnemonic: %q", mnemonicText)
	}
	inst[0] = byte(op)

	if op == OpCall || op == OpJamv {
		if len(operandTexts) != 1 {
			return inst, errors.Errorf("%s requires exactly one label operand", op)
		}
		addr, ok := labels[operandTexts[0]]
		if !ok {
			return inst, errors.Errorf("unknown-label: %q", operandTexts[0])
		}
		inst[1] = 0
		inst[2] = byte(addr)
		inst[3] = byte(addr >> 8)
		inst[0] |= 0b01000000 // slot 2 (the low byte) is always immediate
		return inst, nil
	}

	layout, ok := opcodeLayouts[op]
	if !ok {
		return inst, errors.Errorf("unknown-mnemonic: %q has no operand layout", mnemonicText)
	}
	want := op.numOperands()
	if len(operandTexts) != want {
		return inst, errors.Errorf("%s wants %d operand(s), got %d", op, want, len(operandTexts))
	}

	values := make([]byte, want)
	immediate := make([]bool, want)
	for i, text := range operandTexts {
		v, isImm, err := resolveOperand(text, consts)
		if err != nil {
			return inst, errors.Wrapf(err, "operand %d of %q", i+1, line)
		}
		values[i] = v
		immediate[i] = isImm
	}

	slotValue := func(slot int) byte {
		if slot == 0 {
			return 0
		}
		return values[slot-1]
	}
	slotIsImmediate := func(slot int) bool {
		if slot == 0 {
			return false
		}
		return immediate[slot-1]
	}

	inst[1] = slotValue(layout.slot1)
	inst[2] = slotValue(layout.slot2)
	inst[3] = slotValue(layout.slot3)

	var mask byte
	if slotIsImmediate(layout.slot1) {
		mask |= 0b10000000
	}
	if slotIsImmediate(layout.slot2) {
		mask |= 0b01000000
	}
	inst[0] |= mask

	return inst, nil
}

// resolveOperand resolves one operand token: a constants-table entry,
// then a u8 literal, then a register symbol, in that order. Returns the
// resolved byte and whether it's an immediate (true) or a register
// operand (false).
func resolveOperand(text string, consts map[string]byte) (byte, bool, error) {
	if v, ok := consts[text]; ok {
		return v, true, nil
	}
	if v, err := parseU8Literal(text); err == nil {
		return v, true, nil
	}
	if r, ok := lookupRegister(text); ok {
		return r, false, nil
	}
	return 0, false, errors.Errorf("unknown-operand: %q", text)
}
