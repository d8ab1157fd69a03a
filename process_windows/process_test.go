//go:build windows

package process_windows

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extmem/process"
)

var (
	selfValue int32 = 100
	selfText  [32]byte
)

func TestSelfAttach(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	name := filepath.Base(exe)

	host := NewHost()
	pid := process.ProcessID(os.Getpid())

	processes, err := host.Processes()
	require.NoError(t, err)
	assert.Contains(t, processes, process.ProcessEntry{PID: pid, Name: name})

	module, err := process.FindModule(host, pid, name)
	require.NoError(t, err)

	h, err := host.Open(pid)
	require.NoError(t, err)
	defer h.Close()

	info, err := h.ModuleInfo(module.Base)
	require.NoError(t, err)
	assert.Equal(t, module.Base, info.Base)
	assert.True(t, info.Contains(info.EntryPoint))

	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&selfValue)))
	require.NoError(t, process.Write[int32](h, addr, 999))
	v, err := process.Read[int32](h, addr)
	require.NoError(t, err)
	assert.Equal(t, int32(999), v)

	textAddr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&selfText)))
	require.NoError(t, process.WriteString(h, textAddr, "abc"))
	s, err := process.ReadString(h, textAddr, 32)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	_, err = h.ReadMemory(addr, 4)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

func TestOpenDenied(t *testing.T) {
	// the System Idle Process can never be opened
	_, err := Open(0)
	assert.ErrorIs(t, err, process.ErrHandleDenied)
}
