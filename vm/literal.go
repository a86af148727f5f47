package leg

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// commentMarker begins a line comment that runs to end-of-line.
const commentMarker = ';'

// stripComment removes a trailing `;`-comment from a line and trims
// surrounding whitespace.
func stripComment(line string) string {
	if i := strings.IndexByte(line, commentMarker); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parseU8Literal parses a decimal, `0x`-hex, or `0b`-binary literal into a
// byte. It returns an error if the text isn't a valid literal or doesn't
// fit in 8 bits.
func parseU8Literal(s string) (byte, error) {
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base = 2
		s = s[2:]
	}

	n, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "bad u8 literal %q", s)
	}
	return byte(n), nil
}

// parseQuotedString parses a single-quoted string, where `''` is an
// escaped literal apostrophe.
func parseQuotedString(s string) ([]byte, error) {
	if len(s) < 2 || !strings.HasPrefix(s, "'") || !strings.HasSuffix(s, "'") {
		return nil, errors.Errorf("bad quoted string %q", s)
	}
	content := s[1 : len(s)-1]
	content = strings.ReplaceAll(content, "''", "'")
	return []byte(content), nil
}

// parseByteArray parses a `[a, b, c]` comma-separated byte array.
// Trailing empty entries (a trailing comma) are allowed; an empty `[]`
// yields a zero-length slice.
func parseByteArray(s string) ([]byte, error) {
	if len(s) < 2 || !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, errors.Errorf("bad array literal %q", s)
	}
	content := strings.TrimSpace(s[1 : len(s)-1])
	if content == "" {
		return []byte{}, nil
	}

	parts := strings.Split(content, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			// Tolerate a trailing comma.
			continue
		}
		b, err := parseU8Literal(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad array literal %q", s)
		}
		out = append(out, b)
	}
	return out, nil
}

// dataValue is the parsed form of a `.data` entry's value: a quoted
// string, a byte array, or a single u8 literal.
type dataValue struct {
	bytes []byte
}

// parseDataValue dispatches on the leading character of the value
// token to decide whether it's a string, an array, or a scalar literal.
func parseDataValue(s string) (dataValue, error) {
	switch {
	case strings.HasPrefix(s, "'"):
		b, err := parseQuotedString(s)
		if err != nil {
			return dataValue{}, errors.Wrap(err, "bad data value")
		}
		return dataValue{bytes: b}, nil
	case strings.HasPrefix(s, "["):
		b, err := parseByteArray(s)
		if err != nil {
			return dataValue{}, errors.Wrap(err, "bad data value")
		}
		return dataValue{bytes: b}, nil
	default:
		b, err := parseU8Literal(s)
		if err != nil {
			return dataValue{}, errors.Wrap(err, "bad data value")
		}
		return dataValue{bytes: []byte{b}}, nil
	}
}
