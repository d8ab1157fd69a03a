//go:build linux

package process_linux

import (
	"fmt"

	"extmem/process"
	"extmem/process/memory_map"

	"github.com/samber/lo"
)

var _ process.Host = (*LinuxHost)(nil)

// LinuxHost implements process.Host on top of procfs
type LinuxHost struct{}

// NewHost creates a new LinuxHost
func NewHost() *LinuxHost {
	return &LinuxHost{}
}

// Processes returns a snapshot of the running processes
func (h *LinuxHost) Processes() ([]process.ProcessEntry, error) {
	return ListProcesses()
}

// Modules returns the file-backed images mapped into pid, in address order
func (h *LinuxHost) Modules(pid process.ProcessID) ([]process.ModuleEntry, error) {
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map of %d: %w", pid, err)
	}

	return lo.Map(memory_map.Images(mm), func(img memory_map.Image, _ int) process.ModuleEntry {
		return process.ModuleEntry{
			Name: img.Name(),
			Path: img.Path,
			Base: process.ProcessMemoryAddress(img.Address),
			Size: process.ProcessMemorySize(img.Size),
		}
	}), nil
}

// Open opens pid with read-write access to its memory
func (h *LinuxHost) Open(pid process.ProcessID) (process.Handle, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
