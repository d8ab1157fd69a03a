//go:build windows

package process_windows

import (
	"fmt"
	"sync"
	"unsafe"

	"extmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var _ process.Handle = (*WindowsProcess)(nil)

// WindowsProcess is an open PROCESS_ALL_ACCESS handle to a Windows process
type WindowsProcess struct {
	pid     process.ProcessID
	handle  windows.Handle
	ptrSize process.ProcessMemorySize
	log     *logger.Logger
	mu      sync.Mutex
}

// Open opens pid with full access rights
func Open(pid process.ProcessID) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrHandleDenied, errors.Wrapf(err, "OpenProcess(%d)", pid))
	}

	p := &WindowsProcess{
		pid:     pid,
		handle:  handle,
		ptrSize: pointerSize(handle),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	p.log.Infoln("Process opened, pointer size", uint(p.ptrSize))
	return p, nil
}

// pointerSize is 4 for WOW64 targets and the host's width otherwise
func pointerSize(handle windows.Handle) process.ProcessMemorySize {
	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err == nil && wow64 {
		return process.PointerSize32
	}
	return process.ProcessMemorySize(unsafe.Sizeof(uintptr(0)))
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return errors.Wrap(err, "CloseHandle")
	}
	return nil
}

func (p *WindowsProcess) PID() process.ProcessID {
	return p.pid
}

func (p *WindowsProcess) PointerSize() process.ProcessMemorySize {
	return p.ptrSize
}

func (p *WindowsProcess) currentHandle() windows.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	handle := p.currentHandle()
	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, errors.Wrapf(err, "ReadProcessMemory(%s)", addr.ToString())
	}

	if bytesRead != uintptr(size) {
		return nil, errors.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	handle := p.currentHandle()
	if handle == 0 {
		return process.ErrProcessNotOpen
	}

	var bytesWritten uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &bytesWritten); err != nil {
		return errors.Wrapf(err, "WriteProcessMemory(%s)", addr.ToString())
	}

	if bytesWritten != uintptr(len(data)) {
		return errors.Errorf("write incomplete: expected %d, got %d", len(data), bytesWritten)
	}

	return nil
}

// ModuleInfo queries GetModuleInformation; a module's handle is its load base
func (p *WindowsProcess) ModuleInfo(base process.ProcessMemoryAddress) (process.ModuleInfo, error) {
	handle := p.currentHandle()
	if handle == 0 {
		return process.ModuleInfo{}, process.ErrProcessNotOpen
	}

	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(handle, windows.Handle(base), &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return process.ModuleInfo{}, errors.Wrapf(err, "GetModuleInformation(%s)", base.ToString())
	}

	return process.ModuleInfo{
		Base:       process.ProcessMemoryAddress(mi.BaseOfDll),
		Size:       process.ProcessMemorySize(mi.SizeOfImage),
		EntryPoint: process.ProcessMemoryAddress(mi.EntryPoint),
	}, nil
}
