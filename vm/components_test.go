package leg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAluAdd(t *testing.T) {
	res := alu(byte(OpAdd), 200, 100)
	require.Equal(t, byte(44), res.out) // 300 mod 256
	require.True(t, res.carry)

	res = alu(byte(OpAdd), 1, 1)
	require.Equal(t, byte(2), res.out)
	require.False(t, res.carry)
}

func TestAluSub(t *testing.T) {
	res := alu(byte(OpSub), 5, 3)
	require.Equal(t, byte(2), res.out)
	require.True(t, res.carry) // a >= b: no borrow

	res = alu(byte(OpSub), 3, 5)
	require.Equal(t, byte(254), res.out) // 3 - 5 mod 256
	require.False(t, res.carry)          // a < b: borrow occurred
}

func TestAluBitwise(t *testing.T) {
	require.Equal(t, byte(0b0010), alu(byte(OpAnd), 0b0110, 0b1010).out)
	require.Equal(t, byte(0b1110), alu(byte(OpOr), 0b0110, 0b1010).out)
	require.Equal(t, byte(^byte(0b0110)), alu(byte(OpNot), 0b0110, 0).out)
	require.Equal(t, byte(0b1100), alu(byte(OpXor), 0b0110, 0b1010).out)
}

func TestAluMul(t *testing.T) {
	low := alu(byte(OpMulL), 15, 15).out
	high := alu(byte(OpMulH), 15, 15).out
	product := uint16(low&0x0F) | uint16(high)<<4
	require.Equal(t, uint16(225), product)
}

func TestJumpCondition(t *testing.T) {
	require.True(t, jumpCondition(byte(OpJpEq), 5, 5))
	require.False(t, jumpCondition(byte(OpJpEq), 5, 6))
	require.True(t, jumpCondition(byte(OpJpNe), 5, 6))
	require.False(t, jumpCondition(byte(OpJpNe), 5, 5))
	require.True(t, jumpCondition(byte(OpJpLt), 1, 2))
	require.True(t, jumpCondition(byte(OpJpGe), 2, 2))
	require.True(t, jumpCondition(byte(OpJpLe), 2, 2))
	require.True(t, jumpCondition(byte(OpJpGt), 3, 2))
	require.True(t, jumpCondition(byte(OpJp), 0, 0)) // unconditional
}

func TestShift(t *testing.T) {
	require.Equal(t, byte(0b1000), shift(byte(OpShl), 0b0010, 2))
	require.Equal(t, byte(0), shift(byte(OpShl), 0b0001, 8)) // count >= 8 zeroes
	require.Equal(t, byte(0b0001), shift(byte(OpShr), 0b0010, 1))

	// Wrapping variants reduce the count modulo 8 instead of zeroing.
	require.Equal(t, shift(byte(OpShl), 0b0001, 1), shift(byte(OpWShl), 0b0001, 9))
	require.Equal(t, shift(byte(OpShr), 0b1000, 1), shift(byte(OpWShr), 0b1000, 9))
}
