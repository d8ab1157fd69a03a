//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"extmem/process"
	"extmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var _ process.Handle = (*LinuxProcess)(nil)

// LinuxProcess is an open handle to a Linux process.
// The handle is the process's /proc/[pid]/mem descriptor opened read-write,
// which the kernel only grants under ptrace access rules.
type LinuxProcess struct {
	pid     process.ProcessID
	mem     *os.File
	ptrSize process.ProcessMemorySize
	log     *logger.Logger
	mu      sync.Mutex
}

// Open opens pid for memory operations
func Open(pid process.ProcessID) (*LinuxProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrHandleDenied, pid)
	}

	// Check if process exists
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: process with PID %d does not exist", process.ErrHandleDenied, pid)
	}

	mem, err := os.OpenFile(procPath+"/mem", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrHandleDenied, err)
	}

	p := &LinuxProcess{
		pid:     pid,
		mem:     mem,
		ptrSize: pointerSize(pid),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	p.log.Infoln("Process opened, pointer size", uint(p.ptrSize))

	return p, nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mem == nil {
		return nil
	}

	err := p.mem.Close()
	p.mem = nil

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return fmt.Errorf("close /proc/%d/mem: %w", p.pid, err)
	}
	return nil
}

// PID returns the process ID
func (p *LinuxProcess) PID() process.ProcessID {
	return p.pid
}

func (p *LinuxProcess) PointerSize() process.ProcessMemorySize {
	return p.ptrSize
}

// ModuleInfo reads the image mapped at base from /proc/[pid]/maps and its ELF header
func (p *LinuxProcess) ModuleInfo(base process.ProcessMemoryAddress) (process.ModuleInfo, error) {
	if !p.isOpen() {
		return process.ModuleInfo{}, process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return process.ModuleInfo{}, fmt.Errorf("failed to read memory map: %w", err)
	}

	for _, img := range memory_map.Images(mm) {
		if process.ProcessMemoryAddress(img.Address) != base {
			continue
		}

		info := process.ModuleInfo{
			Base: base,
			Size: process.ProcessMemorySize(img.Size),
		}

		path, err := imageFile(p.pid, img)
		if err == nil {
			info.EntryPoint, err = imageEntryPoint(path, base)
		}
		if err != nil {
			p.log.Debugln("Entry point unavailable for", img.Path, err)
		}

		return info, nil
	}

	return process.ModuleInfo{}, fmt.Errorf("no image mapped at %s", base.ToString())
}

func (p *LinuxProcess) isOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mem != nil
}

// memFile returns the mem descriptor, nil once closed
func (p *LinuxProcess) memFile() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mem
}
