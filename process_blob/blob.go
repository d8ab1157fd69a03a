// Package process_blob provides in-memory process images: address spaces built
// from byte blobs, and a host that serves them through the process.Host contract.
// Tests use them as a deterministic stand-in for a live target.
package process_blob

import (
	"encoding/binary"

	"extmem/process"
)

// ProcessBlob is a contiguous chunk of memory mapped at baseaddress
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	readOnly    bool
}

// NewProcessBlob maps data at baseAddress. The blob owns data from here on.
func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

// Base returns the first address of the blob
func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

// End returns the first address past the blob
func (p *ProcessBlob) End() process.ProcessMemoryAddress {
	return p.baseaddress + process.ProcessMemoryAddress(len(p.data))
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

// SetReadOnly makes writes into the blob fail
func (p *ProcessBlob) SetReadOnly(readOnly bool) {
	p.readOnly = readOnly
}

// Contains reports whether [addr, addr+size) lies entirely inside the blob
func (p *ProcessBlob) Contains(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	if addr < p.baseaddress {
		return false
	}
	end := addr + process.ProcessMemoryAddress(size)
	if end < addr {
		return false
	}
	return end <= p.End()
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if !p.Contains(addr, size) {
		return nil, process.ErrAddressNotMapped
	}
	offset := uint64(addr - p.baseaddress)
	result := make([]byte, size)
	copy(result, p.data[offset:offset+uint64(size)])
	return result, nil
}

func (p *ProcessBlob) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if !p.Contains(addr, process.ProcessMemorySize(len(data))) {
		return process.ErrAddressNotMapped
	}
	if p.readOnly {
		return errReadOnly
	}
	offset := uint64(addr - p.baseaddress)
	copy(p.data[offset:], data)
	return nil
}

// PutUINT32 stores a little-endian uint32 at addr, panicking outside the blob
func (p *ProcessBlob) PutUINT32(addr process.ProcessMemoryAddress, v uint32) {
	binary.LittleEndian.PutUint32(p.slice(addr, 4), v)
}

// PutUINT64 stores a little-endian uint64 at addr, panicking outside the blob
func (p *ProcessBlob) PutUINT64(addr process.ProcessMemoryAddress, v uint64) {
	binary.LittleEndian.PutUint64(p.slice(addr, 8), v)
}

// PutBytes copies data to addr, panicking outside the blob
func (p *ProcessBlob) PutBytes(addr process.ProcessMemoryAddress, data []byte) {
	copy(p.slice(addr, process.ProcessMemorySize(len(data))), data)
}

func (p *ProcessBlob) slice(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) []byte {
	if !p.Contains(addr, size) {
		panic("process_blob: address " + addr.ToString() + " outside blob")
	}
	offset := uint64(addr - p.baseaddress)
	return p.data[offset : offset+uint64(size)]
}
