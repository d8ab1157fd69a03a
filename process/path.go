package process

import (
	"encoding/binary"
	"fmt"
)

// ResolvePointerChain walks a pointer chain starting at base.
// For every offset it reads a pointer-width value at the current address and
// then adds the offset to the value read:
//
//	// base -> *base + 0x10 -> *(*base + 0x10) + 0xEC
//	addr, err := process.ResolvePointerChain(h, base, 0x10, 0xEC)
//
// The returned address is not dereferenced. An empty chain returns base
// without touching memory. The walk stops at the first failed read and
// reports ErrChainRead; no further reads are attempted.
func ResolvePointerChain(mem MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	current := base

	for i, off := range offsets {
		ptr, err := ReadPointer(mem, current)
		if err != nil {
			return 0, fmt.Errorf("%w: step %d at %s: %w", ErrChainRead, i, current.ToString(), err)
		}
		current = ptr.Add(off)
	}

	return current, nil
}

// ReadPointer reads a pointer value of the target's pointer width from addr
func ReadPointer(mem MemoryReader, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	ptrSize := mem.PointerSize()

	data, err := mem.ReadMemory(addr, ptrSize)
	if err != nil {
		return 0, err
	}
	if len(data) < int(ptrSize) {
		return 0, fmt.Errorf("short pointer read: %d of %d bytes", len(data), ptrSize)
	}

	switch ptrSize {
	case PointerSize32:
		return ProcessMemoryAddress(binary.LittleEndian.Uint32(data)), nil
	case PointerSize64:
		return ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("unsupported pointer size %d", ptrSize)
	}
}
