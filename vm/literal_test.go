package leg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseU8Literal(t *testing.T) {
	cases := []struct {
		in   string
		want byte
	}{
		{"0", 0},
		{"255", 255},
		{"0x0F", 0x0F},
		{"0xff", 0xff},
		{"0b1010", 0b1010},
	}
	for _, c := range cases {
		got, err := parseU8Literal(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}

	_, err := parseU8Literal("256")
	require.Error(t, err)
	_, err = parseU8Literal("not-a-number")
	require.Error(t, err)
}

func TestParseQuotedString(t *testing.T) {
	b, err := parseQuotedString(`'hello'`)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), b)

	b, err = parseQuotedString(`'it''s'`)
	require.NoError(t, err)
	require.Equal(t, []byte("it's"), b)

	_, err = parseQuotedString(`'unterminated`)
	require.Error(t, err)
}

func TestParseByteArray(t *testing.T) {
	b, err := parseByteArray("[1, 2, 3]")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)

	b, err = parseByteArray("[1, 2, 3,]")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)

	b, err = parseByteArray("[]")
	require.NoError(t, err)
	require.Equal(t, []byte{}, b)
}

func TestStripComment(t *testing.T) {
	require.Equal(t, "add r0 r1 r2", stripComment("add r0 r1 r2 ; sum them"))
	require.Equal(t, "", stripComment("  ; just a comment"))
	require.Equal(t, "nop", stripComment("nop"))
}
