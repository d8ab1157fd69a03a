package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extmem/process"
	"extmem/process_blob"
	"extmem/session"
)

const (
	gamePID    process.ProcessID            = 3100
	gameName                                = "ac_client.exe"
	gameBase   process.ProcessMemoryAddress = 0x400000
	playerSlot process.ProcessMemorySize    = 0x17E0A8
	playerAddr process.ProcessMemoryAddress = 0x01000000
	healthOff  process.ProcessMemorySize    = 0xEC
)

// newGame builds a 32-bit target whose module holds a pointer to a player
// structure with health 100 at +0xEC and a name at +0x10.
func newGame(t *testing.T) (*process_blob.DumpHost, *process_blob.ProcessDump) {
	t.Helper()

	host := process_blob.NewDumpHost()
	host.AddProcess(4, "System", process_blob.NewProcessDump(process.PointerSize64))
	return host, addGame(host)
}

func addGame(host *process_blob.DumpHost) *process_blob.ProcessDump {
	dump := process_blob.NewProcessDump(process.PointerSize32)
	module := dump.Map(gameBase.Add(0x17E000), 0x1000)
	module.PutUINT32(gameBase.Add(playerSlot), uint32(playerAddr))

	player := dump.Map(playerAddr, 0x200)
	player.PutUINT32(playerAddr.Add(healthOff), 100)
	player.PutBytes(playerAddr.Add(0x10), []byte("unarmed\x00"))

	host.AddProcess(gamePID, gameName, dump)
	host.AddModule(gamePID, process.ModuleEntry{Name: gameName, Base: gameBase, Size: 0x1A0000}, gameBase.Add(0xA1000))
	host.AddModule(gamePID, process.ModuleEntry{Name: "KERNEL32.DLL", Base: 0x75A00000, Size: 0xF0000}, 0)
	return dump
}

func TestAttach(t *testing.T) {
	host, _ := newGame(t)

	s := session.New(host, "AC_CLIENT.EXE")
	defer s.Close()

	require.True(t, s.Attached(), s.LastError())
	assert.Equal(t, session.Attached, s.State())
	assert.Equal(t, gamePID, s.ProcessID())
	assert.Equal(t, gameBase, s.ModuleBase())
	assert.Equal(t, process.ModuleInfo{Base: gameBase, Size: 0x1A0000, EntryPoint: gameBase.Add(0xA1000)}, s.ModuleInfo())
	assert.Equal(t, process.PointerSize32, s.PointerSize())
	assert.Empty(t, s.LastError())
	assert.NoError(t, s.Err())
	assert.Equal(t, 1, host.Live())
}

func TestAttachWithModule(t *testing.T) {
	host, _ := newGame(t)

	s := session.New(host, gameName, session.WithModule("kernel32.dll"))
	defer s.Close()

	require.True(t, s.Attached(), s.LastError())
	assert.Equal(t, process.ProcessMemoryAddress(0x75A00000), s.ModuleBase())
	assert.Equal(t, "kernel32.dll", s.ModuleName())
	assert.Equal(t, gameName, s.TargetName())
}

func TestAttachFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*process_blob.DumpHost)
		target  string
		opts    []session.Option
		reason  error
		message string
	}{
		{
			name:    "process missing",
			setup:   func(*process_blob.DumpHost) {},
			target:  "notepad.exe",
			reason:  process.ErrProcessNotFound,
			message: "process id not found for notepad.exe",
		},
		{
			name:    "snapshot fails",
			setup:   func(h *process_blob.DumpHost) { h.FailSnapshots(errors.New("snapshot failed")) },
			target:  gameName,
			reason:  process.ErrProcessNotFound,
			message: "process id not found for " + gameName,
		},
		{
			name:    "open denied",
			setup:   func(h *process_blob.DumpHost) { h.DenyOpen(gamePID, true) },
			target:  gameName,
			reason:  process.ErrHandleDenied,
			message: "failed to open process: " + gameName,
		},
		{
			name:    "module missing",
			setup:   func(*process_blob.DumpHost) {},
			target:  gameName,
			opts:    []session.Option{session.WithModule("d3d9.dll")},
			reason:  process.ErrModuleNotFound,
			message: "module base address not found for process: " + gameName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, _ := newGame(t)
			tt.setup(host)

			s := session.New(host, tt.target, tt.opts...)

			assert.False(t, s.Attached())
			assert.Equal(t, session.Failed, s.State())
			assert.Equal(t, tt.message, s.LastError())
			assert.ErrorIs(t, s.Err(), tt.reason)
			assert.True(t, session.IsAttachFailure(s.Err()))
			assert.Zero(t, s.ProcessID())
			assert.Zero(t, s.ModuleBase())

			// whatever the attempt opened has been released
			assert.Equal(t, 0, host.Live())
		})
	}
}

func TestOperationsRequireAttach(t *testing.T) {
	host, _ := newGame(t)
	s := session.NewUnattached(host, gameName)
	assert.Equal(t, session.Unattached, s.State())

	_, err := s.Resolve(playerSlot, healthOff)
	assert.ErrorIs(t, err, session.ErrNotAttached)
	_, err = s.ReadMemory(playerAddr, 4)
	assert.ErrorIs(t, err, session.ErrNotAttached)
	assert.ErrorIs(t, s.WriteMemory(playerAddr, []byte{1}), session.ErrNotAttached)
	_, err = session.Read[int32](s, playerAddr)
	assert.ErrorIs(t, err, session.ErrNotAttached)
	assert.ErrorIs(t, session.Write[int32](s, playerAddr, 1), session.ErrNotAttached)
	str, err := s.ReadString(playerAddr, 8)
	assert.ErrorIs(t, err, session.ErrNotAttached)
	assert.Empty(t, str)
	assert.ErrorIs(t, s.WriteString(playerAddr, "x"), session.ErrNotAttached)

	assert.Equal(t, 0, host.Opens())
}

func TestResolveAndWriteHealth(t *testing.T) {
	host, dump := newGame(t)

	s := session.New(host, gameName)
	require.True(t, s.Attached(), s.LastError())
	defer s.Close()

	dump.ResetCounters()
	addr, err := s.Resolve(playerSlot, healthOff)
	require.NoError(t, err)
	assert.Equal(t, playerAddr.Add(healthOff), addr)
	assert.Equal(t, []process.ProcessMemoryAddress{gameBase.Add(playerSlot)}, dump.Reads())

	health, err := session.Read[int32](s, addr)
	require.NoError(t, err)
	assert.Equal(t, int32(100), health)

	require.NoError(t, session.Write[int32](s, addr, 999))
	health, err = session.Read[int32](s, addr)
	require.NoError(t, err)
	assert.Equal(t, int32(999), health)

	same, err := s.ResolveAbsolute(gameBase.Add(playerSlot), healthOff)
	require.NoError(t, err)
	assert.Equal(t, addr, same)
}

func TestResolveWithoutOffsets(t *testing.T) {
	host, dump := newGame(t)

	s := session.New(host, gameName)
	require.True(t, s.Attached(), s.LastError())
	defer s.Close()

	dump.ResetCounters()
	addr, err := s.Resolve(playerSlot)
	require.NoError(t, err)
	assert.Equal(t, gameBase.Add(playerSlot), addr)
	assert.Empty(t, dump.Reads())
}

func TestResolveBrokenChain(t *testing.T) {
	host, _ := newGame(t)

	s := session.New(host, gameName)
	require.True(t, s.Attached(), s.LastError())
	defer s.Close()

	// the player's first word is 0, so the third hop reads the null page
	_, err := s.Resolve(playerSlot, 0, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrChainRead)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
	assert.Contains(t, err.Error(), "step 2")
}

func TestStrings(t *testing.T) {
	host, _ := newGame(t)

	s := session.New(host, gameName)
	require.True(t, s.Attached(), s.LastError())
	defer s.Close()

	name, err := s.ReadString(playerAddr.Add(0x10), process.DefaultStringLength)
	require.NoError(t, err)
	assert.Equal(t, "unarmed", name)

	require.NoError(t, s.WriteString(playerAddr.Add(0x10), "sniper"))
	name, err = s.ReadString(playerAddr.Add(0x10), process.DefaultStringLength)
	require.NoError(t, err)
	assert.Equal(t, "sniper", name)

	name, err = s.ReadString(0x10, 16)
	assert.Error(t, err)
	assert.Empty(t, name)
}

func TestReattachReleasesHandle(t *testing.T) {
	host, _ := newGame(t)

	s := session.New(host, gameName)
	require.True(t, s.Attached(), s.LastError())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Attach())
		assert.Equal(t, host.Closes()+1, host.Opens())
		assert.Equal(t, 1, host.Live())
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, host.Live())
	assert.Equal(t, session.Unattached, s.State())
	assert.Zero(t, s.ProcessID())
}

func TestReattachFailure(t *testing.T) {
	tests := []struct {
		name   string
		change func(*process_blob.DumpHost)
		reason error
	}{
		{
			name:   "process exited",
			change: func(h *process_blob.DumpHost) { h.RemoveProcess(gamePID) },
			reason: process.ErrProcessNotFound,
		},
		{
			name:   "open denied",
			change: func(h *process_blob.DumpHost) { h.DenyOpen(gamePID, true) },
			reason: process.ErrHandleDenied,
		},
		{
			name:   "module unloaded",
			change: func(h *process_blob.DumpHost) { h.RemoveModule(gamePID, gameName) },
			reason: process.ErrModuleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, _ := newGame(t)

			s := session.New(host, gameName)
			require.True(t, s.Attached(), s.LastError())
			require.Equal(t, 1, host.Live())

			tt.change(host)

			err := s.Attach()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)
			assert.False(t, s.Attached())
			assert.Equal(t, session.Failed, s.State())
			assert.Zero(t, s.ProcessID())
			assert.Zero(t, s.ModuleBase())
			assert.Equal(t, process.ModuleInfo{}, s.ModuleInfo())

			// both the previous handle and any opened by the failed attempt are closed
			assert.Equal(t, 0, host.Live())
			assert.Equal(t, host.Opens(), host.Closes())

			_, err = s.Resolve(playerSlot, healthOff)
			assert.ErrorIs(t, err, session.ErrNotAttached)
			require.NoError(t, s.Close())
		})
	}
}

func TestModuleInfoFallback(t *testing.T) {
	host, _ := newGame(t)
	failing := &moduleInfoFailingHost{DumpHost: host}

	s := session.New(failing, gameName)
	defer s.Close()

	require.True(t, s.Attached(), s.LastError())
	assert.Equal(t, process.ModuleInfo{Base: gameBase}, s.ModuleInfo())
}

type moduleInfoFailingHost struct {
	*process_blob.DumpHost
}

func (h *moduleInfoFailingHost) Open(pid process.ProcessID) (process.Handle, error) {
	handle, err := h.DumpHost.Open(pid)
	if err != nil {
		return nil, err
	}
	return moduleInfoFailingHandle{handle}, nil
}

type moduleInfoFailingHandle struct {
	process.Handle
}

func (moduleInfoFailingHandle) ModuleInfo(process.ProcessMemoryAddress) (process.ModuleInfo, error) {
	return process.ModuleInfo{}, errors.New("no module information")
}

func TestWaitAttached(t *testing.T) {
	host := process_blob.NewDumpHost()
	s := session.NewUnattached(host, gameName)

	var attempts []int
	err := s.WaitAttached(context.Background(), time.Millisecond, func(attempt int, err error) {
		attempts = append(attempts, attempt)
		assert.ErrorIs(t, err, process.ErrProcessNotFound)
		assert.LessOrEqual(t, host.Live(), 1)

		if attempt == 3 {
			addGame(host)
		}
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.True(t, s.Attached())
	assert.Equal(t, 1, host.Live())
}

func TestWaitAttachedCancelled(t *testing.T) {
	host := process_blob.NewDumpHost()
	s := session.NewUnattached(host, gameName)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.WaitAttached(ctx, time.Millisecond, func(attempt int, err error) {
		if attempt == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Attached())
	assert.Equal(t, 0, host.Opens())
}
