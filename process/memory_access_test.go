package process_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extmem/process"
	"extmem/process_blob"
)

type vector3 struct {
	X, Y, Z float32
}

func TestReadWriteRoundTrip(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x1000)

	require.NoError(t, process.Write[int32](dump, 0x100EC, 999))
	health, err := process.Read[int32](dump, 0x100EC)
	require.NoError(t, err)
	assert.Equal(t, int32(999), health)

	require.NoError(t, process.Write(dump, 0x10200, -1.5e300))
	f, err := process.Read[float64](dump, 0x10200)
	require.NoError(t, err)
	assert.Equal(t, -1.5e300, f)

	require.NoError(t, process.Write(dump, 0x10300, math.Inf(1)))
	f, err = process.Read[float64](dump, 0x10300)
	require.NoError(t, err)
	assert.True(t, math.IsInf(f, 1))

	pos := vector3{X: 1, Y: -2.25, Z: 1024}
	require.NoError(t, process.Write(dump, 0x10400, pos))
	got, err := process.Read[vector3](dump, 0x10400)
	require.NoError(t, err)
	assert.Equal(t, pos, got)
}

func TestReadIsLittleEndianRaw(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x10).PutBytes(0x10000, []byte{0x01, 0x02, 0x03, 0x04})

	v, err := process.Read[uint32](dump, 0x10000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)
}

func TestReadFailureReturnsZero(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x10)

	v, err := process.Read[int64](dump, 0x20000)
	assert.ErrorIs(t, err, process.ErrIO)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
	assert.Zero(t, v)

	// straddling the end of a region fails as a whole
	_, err = process.Read[int64](dump, 0x1000C)
	assert.ErrorIs(t, err, process.ErrIO)
}

func TestWriteFailure(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x10).SetReadOnly(true)

	assert.ErrorIs(t, process.Write[int32](dump, 0x10000, 1), process.ErrIO)
	assert.ErrorIs(t, process.Write[int32](dump, 0x30000, 1), process.ErrIO)
}

func TestStringRoundTrip(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	blob := dump.Map(0x10000, 0x100)
	// leftovers beyond the terminator must be ignored
	blob.PutBytes(0x10000, []byte("zzzzzzzzzz"))

	require.NoError(t, process.WriteString(dump, 0x10000, "abc"))
	assert.Equal(t, []byte("abc\x00zzzzzz"), blob.Data()[:10])

	for _, maxLength := range []process.ProcessMemorySize{4, 5, process.DefaultStringLength} {
		s, err := process.ReadString(dump, 0x10000, maxLength)
		require.NoError(t, err)
		assert.Equal(t, "abc", s)
	}
}

func TestReadStringWithoutTerminator(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x10).PutBytes(0x10000, []byte("0123456789abcdef"))

	s, err := process.ReadString(dump, 0x10000, 8)
	require.NoError(t, err)
	assert.Equal(t, "01234567", s)

	s, err = process.ReadString(dump, 0x10000, 0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestReadStringUnreadable(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)

	s, err := process.ReadString(dump, 0x10000, process.DefaultStringLength)
	assert.ErrorIs(t, err, process.ErrIO)
	assert.Equal(t, "", s)
}

func TestWriteStringTooLong(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 4)

	// "abcd" needs 5 bytes with its terminator
	assert.ErrorIs(t, process.WriteString(dump, 0x10000, "abcd"), process.ErrIO)
	assert.NoError(t, process.WriteString(dump, 0x10000, "abc"))
}

func TestReadPointer(t *testing.T) {
	dump := process_blob.NewProcessDump(process.PointerSize64)
	dump.Map(0x10000, 0x10).PutUINT64(0x10008, 0x7FF6_1234_5678)

	ptr, err := process.ReadPointer(dump, 0x10008)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x7FF6_1234_5678), ptr)
}
