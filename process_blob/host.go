package process_blob

import (
	"fmt"
	"sync"

	"extmem/process"
)

var _ process.Host = (*DumpHost)(nil)

// DumpHost serves ProcessDumps through the process.Host contract and keeps
// count of every handle it hands out, so tests can check handle ownership.
type DumpHost struct {
	mu          sync.Mutex
	processes   []process.ProcessEntry
	modules     map[process.ProcessID][]process.ModuleEntry
	entryPoints map[process.ProcessID]map[process.ProcessMemoryAddress]process.ProcessMemoryAddress
	dumps       map[process.ProcessID]*ProcessDump
	denied      map[process.ProcessID]bool
	snapshotErr error
	opens       int
	closes      int
}

// NewDumpHost creates a host with no processes
func NewDumpHost() *DumpHost {
	return &DumpHost{
		modules:     make(map[process.ProcessID][]process.ModuleEntry),
		entryPoints: make(map[process.ProcessID]map[process.ProcessMemoryAddress]process.ProcessMemoryAddress),
		dumps:       make(map[process.ProcessID]*ProcessDump),
		denied:      make(map[process.ProcessID]bool),
	}
}

// AddProcess registers a process backed by dump, appended in enumeration order
func (h *DumpHost) AddProcess(pid process.ProcessID, name string, dump *ProcessDump) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.processes = append(h.processes, process.ProcessEntry{PID: pid, Name: name})
	h.dumps[pid] = dump
}

// RemoveProcess simulates process exit: it disappears from snapshots and can no longer be opened
func (h *DumpHost) RemoveProcess(pid process.ProcessID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.processes[:0]
	for _, entry := range h.processes {
		if entry.PID != pid {
			kept = append(kept, entry)
		}
	}
	h.processes = kept
	delete(h.modules, pid)
	delete(h.dumps, pid)
}

// AddModule registers a module loaded in pid, appended in enumeration order
func (h *DumpHost) AddModule(pid process.ProcessID, module process.ModuleEntry, entryPoint process.ProcessMemoryAddress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.modules[pid] = append(h.modules[pid], module)
	if h.entryPoints[pid] == nil {
		h.entryPoints[pid] = make(map[process.ProcessMemoryAddress]process.ProcessMemoryAddress)
	}
	h.entryPoints[pid][module.Base] = entryPoint
}

// RemoveModule simulates unloading every module of pid named name
func (h *DumpHost) RemoveModule(pid process.ProcessID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.modules[pid][:0]
	for _, module := range h.modules[pid] {
		if module.Name != name {
			kept = append(kept, module)
		}
	}
	h.modules[pid] = kept
}

// DenyOpen makes Open fail for pid
func (h *DumpHost) DenyOpen(pid process.ProcessID, deny bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.denied[pid] = deny
}

// FailSnapshots makes Processes and Modules return err; nil restores them
func (h *DumpHost) FailSnapshots(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshotErr = err
}

func (h *DumpHost) Processes() ([]process.ProcessEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.snapshotErr != nil {
		return nil, h.snapshotErr
	}
	result := make([]process.ProcessEntry, len(h.processes))
	copy(result, h.processes)
	return result, nil
}

func (h *DumpHost) Modules(pid process.ProcessID) ([]process.ModuleEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.snapshotErr != nil {
		return nil, h.snapshotErr
	}
	if _, ok := h.dumps[pid]; !ok {
		return nil, fmt.Errorf("process %d does not exist", pid)
	}
	result := make([]process.ModuleEntry, len(h.modules[pid]))
	copy(result, h.modules[pid])
	return result, nil
}

func (h *DumpHost) Open(pid process.ProcessID) (process.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dump, ok := h.dumps[pid]
	if !ok {
		return nil, fmt.Errorf("%w: process %d does not exist", process.ErrHandleDenied, pid)
	}
	if h.denied[pid] {
		return nil, fmt.Errorf("%w: access denied to process %d", process.ErrHandleDenied, pid)
	}

	h.opens++
	return &dumpHandle{host: h, pid: pid, dump: dump}, nil
}

// Opens returns the number of handles handed out so far
func (h *DumpHost) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Closes returns the number of handles released so far
func (h *DumpHost) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Live returns the number of handles currently open
func (h *DumpHost) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens - h.closes
}

func (h *DumpHost) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
}

func (h *DumpHost) moduleInfo(pid process.ProcessID, base process.ProcessMemoryAddress) (process.ModuleInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, module := range h.modules[pid] {
		if module.Base == base {
			return process.ModuleInfo{
				Base:       module.Base,
				Size:       module.Size,
				EntryPoint: h.entryPoints[pid][base],
			}, nil
		}
	}
	return process.ModuleInfo{}, fmt.Errorf("no module at %s in process %d", base.ToString(), pid)
}

type dumpHandle struct {
	mu     sync.Mutex
	host   *DumpHost
	pid    process.ProcessID
	dump   *ProcessDump
	closed bool
}

func (d *dumpHandle) PID() process.ProcessID {
	return d.pid
}

func (d *dumpHandle) PointerSize() process.ProcessMemorySize {
	return d.dump.PointerSize()
}

func (d *dumpHandle) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if d.isClosed() {
		return nil, process.ErrProcessNotOpen
	}
	return d.dump.ReadMemory(addr, size)
}

func (d *dumpHandle) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if d.isClosed() {
		return process.ErrProcessNotOpen
	}
	return d.dump.WriteMemory(addr, data)
}

func (d *dumpHandle) ModuleInfo(base process.ProcessMemoryAddress) (process.ModuleInfo, error) {
	if d.isClosed() {
		return process.ModuleInfo{}, process.ErrProcessNotOpen
	}
	return d.host.moduleInfo(d.pid, base)
}

func (d *dumpHandle) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.host.release()
	return nil
}

func (d *dumpHandle) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
