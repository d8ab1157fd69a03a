package process_blob

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"extmem/process"
	"extmem/process/memory_map"
)

var errReadOnly = errors.New("region is read-only")

var _ process.Memory = (*ProcessDump)(nil)

// ProcessDump is a sparse address space made of non-overlapping blobs.
// Every ReadMemory call is recorded so tests can assert on access patterns.
type ProcessDump struct {
	mu      sync.Mutex
	ptrSize process.ProcessMemorySize
	blobs   []*ProcessBlob // sorted by base address
	reads   []process.ProcessMemoryAddress
	writes  int
}

// NewProcessDump creates an empty address space with the given pointer width
func NewProcessDump(ptrSize process.ProcessMemorySize) *ProcessDump {
	return &ProcessDump{ptrSize: ptrSize}
}

// Map allocates a zeroed blob of size bytes at base
func (p *ProcessDump) Map(base process.ProcessMemoryAddress, size process.ProcessMemorySize) *ProcessBlob {
	blob := NewProcessBlob(base, make([]byte, size))
	p.MapBlob(blob)
	return blob
}

// MapBlob adds blob to the address space. Overlapping an existing blob panics.
func (p *ProcessDump) MapBlob(blob *ProcessBlob) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.blobs {
		if blob.Base() < existing.End() && existing.Base() < blob.End() {
			panic(fmt.Sprintf("process_blob: blob at %s overlaps blob at %s", blob.Base().ToString(), existing.Base().ToString()))
		}
	}

	p.blobs = append(p.blobs, blob)
	sort.Slice(p.blobs, func(i, j int) bool {
		return p.blobs[i].Base() < p.blobs[j].Base()
	})
}

// Unmap removes the blob starting at base, reporting whether one was found
func (p *ProcessDump) Unmap(base process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, blob := range p.blobs {
		if blob.Base() == base {
			p.blobs = append(p.blobs[:i], p.blobs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *ProcessDump) PointerSize() process.ProcessMemorySize {
	return p.ptrSize
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads = append(p.reads, addr)

	blob := p.find(addr)
	if blob == nil {
		return nil, fmt.Errorf("%w: %s", process.ErrAddressNotMapped, addr.ToString())
	}
	return blob.ReadMemory(addr, size)
}

func (p *ProcessDump) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes++

	blob := p.find(addr)
	if blob == nil {
		return fmt.Errorf("%w: %s", process.ErrAddressNotMapped, addr.ToString())
	}
	return blob.WriteMemory(addr, data)
}

// Reads returns the addresses of every ReadMemory call so far, in order
func (p *ProcessDump) Reads() []process.ProcessMemoryAddress {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]process.ProcessMemoryAddress, len(p.reads))
	copy(result, p.reads)
	return result
}

// Writes returns the number of WriteMemory calls so far
func (p *ProcessDump) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// ResetCounters forgets recorded reads and writes
func (p *ProcessDump) ResetCounters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = nil
	p.writes = 0
}

// GetMemoryMap describes the mapped blobs as memory map items
func (p *ProcessDump) GetMemoryMap() []memory_map.MemoryMapItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]memory_map.MemoryMapItem, 0, len(p.blobs))
	for _, blob := range p.blobs {
		perms := "rw-p"
		if blob.readOnly {
			perms = "r--p"
		}
		result = append(result, memory_map.MemoryMapItem{
			Address: uint64(blob.Base()),
			Size:    uint(len(blob.Data())),
			Perms:   perms,
		})
	}
	return result
}

// find assumes the mutex is held
func (p *ProcessDump) find(addr process.ProcessMemoryAddress) *ProcessBlob {
	i := sort.Search(len(p.blobs), func(i int) bool {
		return p.blobs[i].End() > addr
	})
	if i < len(p.blobs) && p.blobs[i].Base() <= addr {
		return p.blobs[i]
	}
	return nil
}
