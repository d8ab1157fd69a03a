//go:build windows

package process_windows

import (
	"unsafe"

	"extmem/process"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var _ process.Host = (*WindowsHost)(nil)

// WindowsHost implements process.Host with Toolhelp32 snapshots
type WindowsHost struct{}

// NewHost creates a new WindowsHost
func NewHost() *WindowsHost {
	return &WindowsHost{}
}

// Processes walks a TH32CS_SNAPPROCESS snapshot
func (h *WindowsHost) Processes() ([]process.ProcessEntry, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer windows.CloseHandle(snapshot) //nolint

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))

	if err := windows.Process32First(snapshot, &pe); err != nil {
		return nil, errors.WithStack(err)
	}

	var processList []process.ProcessEntry
	for {
		processList = append(processList, process.ProcessEntry{
			PID:  process.ProcessID(pe.ProcessID),
			Name: windows.UTF16ToString(pe.ExeFile[:]),
		})

		if err := windows.Process32Next(snapshot, &pe); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, errors.WithStack(err)
		}
	}

	return processList, nil
}

// snapshotRetries bounds the ERROR_BAD_LENGTH retries of a module snapshot,
// which Windows returns while the target is still loading modules.
const snapshotRetries = 5

// Modules walks a TH32CS_SNAPMODULE|TH32CS_SNAPMODULE32 snapshot of pid
func (h *WindowsHost) Modules(pid process.ProcessID) ([]process.ModuleEntry, error) {
	var (
		snapshot windows.Handle
		err      error
	)
	for i := 0; i < snapshotRetries; i++ {
		snapshot, err = windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
		if !errors.Is(err, windows.ERROR_BAD_LENGTH) {
			break
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "module snapshot of %d", pid)
	}
	defer windows.CloseHandle(snapshot) //nolint

	var me windows.ModuleEntry32
	me.Size = uint32(unsafe.Sizeof(me))

	if err := windows.Module32First(snapshot, &me); err != nil {
		return nil, errors.WithStack(err)
	}

	var modules []process.ModuleEntry
	for {
		modules = append(modules, process.ModuleEntry{
			Name: windows.UTF16ToString(me.Module[:]),
			Path: windows.UTF16ToString(me.ExePath[:]),
			Base: process.ProcessMemoryAddress(me.ModBaseAddr),
			Size: process.ProcessMemorySize(me.ModBaseSize),
		})

		if err := windows.Module32Next(snapshot, &me); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, errors.WithStack(err)
		}
	}

	return modules, nil
}

// Open opens pid with PROCESS_ALL_ACCESS
func (h *WindowsHost) Open(pid process.ProcessID) (process.Handle, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
