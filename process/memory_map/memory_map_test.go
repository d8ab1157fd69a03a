package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMaps = `55d4c8a00000-55d4c8a02000 r--p 00000000 08:01 1311 /usr/bin/cat
55d4c8a02000-55d4c8a07000 r-xp 00002000 08:01 1311 /usr/bin/cat
55d4c8a0b000-55d4c8a0c000 rw-p 0000a000 08:01 1311 /usr/bin/cat
55d4c9b1e000-55d4c9b3f000 rw-p 00000000 00:00 0    [heap]
7f1e2c000000-7f1e2c021000 rw-p 00000000 00:00 0
7f1e2c400000-7f1e2c428000 r--p 00000000 08:01 2201 /usr/lib/x86_64-linux-gnu/libc.so.6
7f1e2c428000-7f1e2c5bd000 r-xp 00028000 08:01 2201 /usr/lib/x86_64-linux-gnu/libc.so.6
7f1e2c600000-7f1e2c601000 rw-p 00000000 08:01 3301 /opt/my game/game bin
garbage line
7ffd5a1e0000-7ffd5a201000 rw-p 00000000 00:00 0    [stack]
`

func TestParse(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, items, 9)

	first := items[0]
	assert.Equal(t, uint64(0x55d4c8a00000), first.Address)
	assert.Equal(t, uint(0x2000), first.Size)
	assert.Equal(t, "r--p", first.Perms)
	assert.Equal(t, "/usr/bin/cat", first.Path)
	assert.True(t, first.IsReadable())
	assert.False(t, first.IsWritable())

	assert.Equal(t, uint64(0x2000), items[1].Offset)
	assert.True(t, items[1].IsExecutable())

	assert.Equal(t, "[heap]", items[3].Path)
	assert.False(t, items[3].IsFileBacked())
	assert.Equal(t, "", items[4].Path)
	assert.Equal(t, "/opt/my game/game bin", items[7].Path)
}

func TestImages(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	images := Images(items)
	require.Len(t, images, 3)

	assert.Equal(t, "cat", images[0].Name())
	assert.Equal(t, uint64(0x55d4c8a00000), images[0].Address)
	assert.Equal(t, uint(0xc000), images[0].Size)

	assert.Equal(t, "libc.so.6", images[1].Name())
	assert.Equal(t, uint64(0x7f1e2c400000), images[1].Address)
	assert.Equal(t, uint(0x1bd000), images[1].Size)

	assert.Equal(t, "game bin", images[2].Name())
}

func TestGetMemoryRegionForAddress(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)

	region := GetMemoryRegionForAddress(0x55d4c8a03000, items)
	require.NotNil(t, region)
	assert.Equal(t, uint64(0x55d4c8a02000), region.Address)

	assert.Nil(t, GetMemoryRegionForAddress(0x1000, items))
	assert.Nil(t, GetMemoryRegionForAddress(0x55d4c8a07000, items))
}

func TestParsePathWhitespace(t *testing.T) {
	items, err := Parse(strings.NewReader(
		"7f0000000000-7f0000001000 r--p 00000000 08:01 77          /opt/a  b/lib.so\n" +
			"7f0000002000-7f0000003000 r--p 00000000 08:01 78\t/opt/tab\tdir/x.so\n"))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "/opt/a  b/lib.so", items[0].Path)
	assert.Equal(t, "/opt/tab\tdir/x.so", items[1].Path)
}

func TestDeletedImages(t *testing.T) {
	items, err := Parse(strings.NewReader(
		"55d4c8a00000-55d4c8a02000 r--p 00000000 08:01 1311 /usr/bin/mygame (deleted)\n" +
			"55d4c8a02000-55d4c8a07000 r-xp 00002000 08:01 1311 /usr/bin/mygame (deleted)\n" +
			"7f1e2c400000-7f1e2c428000 r--p 00000000 08:01 2201 /usr/lib/libfoo.so\n" +
			"7f1e2c600000-7f1e2c601000 r--p 00000000 08:01 2202 /usr/lib/libfoo.so (deleted)\n"))
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "/usr/bin/mygame", items[0].Path)
	assert.True(t, items[0].Deleted)
	assert.False(t, items[2].Deleted)

	images := Images(items)
	require.Len(t, images, 3)

	assert.Equal(t, "mygame", images[0].Name())
	assert.Equal(t, "/usr/bin/mygame", images[0].Path)
	assert.True(t, images[0].Deleted)
	assert.Equal(t, uint(0x7000), images[0].Size)

	// the replaced library and its old mapping stay separate images
	assert.Equal(t, "libfoo.so", images[1].Name())
	assert.False(t, images[1].Deleted)
	assert.Equal(t, "libfoo.so", images[2].Name())
	assert.True(t, images[2].Deleted)
	assert.Equal(t, uint64(0x7f1e2c600000), images[2].Address)
}

func TestTrimDeleted(t *testing.T) {
	path, deleted := TrimDeleted("/usr/bin/mygame (deleted)")
	assert.Equal(t, "/usr/bin/mygame", path)
	assert.True(t, deleted)

	path, deleted = TrimDeleted("/usr/bin/mygame")
	assert.Equal(t, "/usr/bin/mygame", path)
	assert.False(t, deleted)
}
