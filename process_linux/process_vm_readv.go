//go:build linux

package process_linux

import (
	"fmt"
	"math"

	"extmem/process"
	"extmem/process/memory_map"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	localBuf := make([]byte, bytesToRead)

	// Create iovec for local buffer
	localIov := []unix.Iovec{{Base: &localBuf[0]}}
	localIov[0].SetLen(int(bytesToRead))

	// Create iovec for remote buffer
	remoteIov := []unix.RemoteIovec{{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}}

	n, err := unix.ProcessVMReadv(int(pid), localIov, remoteIov, 0)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv failed: %w", err)
	}

	// Check if we read the expected number of bytes
	if n != int(bytesToRead) {
		return localBuf[:n], fmt.Errorf("partial read: %d of %d bytes", n, bytesToRead)
	}

	return localBuf, nil
}

// ReadMemory reads memory from the process at the specified address.
// process_vm_readv is tried first; the mem descriptor serves as a fallback
// for kernels or sandboxes that refuse the syscall.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	mem := p.memFile()
	if mem == nil {
		return nil, process.ErrProcessNotOpen
	}

	data, err := process_vm_readv(p.pid, addr, size)
	if err == nil {
		return data, nil
	}

	if uint64(addr) > math.MaxInt64 {
		return nil, p.readError(addr, err)
	}

	buf := make([]byte, size)
	n, memErr := mem.ReadAt(buf, int64(addr))
	if memErr != nil || n != len(buf) {
		p.log.Debugln("Read failed at", addr.ToString(), err, memErr)
		return nil, p.readError(addr, err)
	}

	return buf, nil
}

// readError reports reads that start outside every mapping as ErrAddressNotMapped
func (p *LinuxProcess) readError(addr process.ProcessMemoryAddress, err error) error {
	mm, mmErr := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if mmErr != nil {
		return err
	}
	if memory_map.GetMemoryRegionForAddress(uint64(addr), mm) == nil {
		return fmt.Errorf("%w: %s: %w", process.ErrAddressNotMapped, addr.ToString(), err)
	}
	return err
}
