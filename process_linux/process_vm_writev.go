//go:build linux

package process_linux

import (
	"fmt"
	"math"

	"extmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	// Create iovec for local buffer
	localIov := []unix.Iovec{{Base: &localBuf[0]}}
	localIov[0].SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := []unix.RemoteIovec{{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}}

	n, err := unix.ProcessVMWritev(int(pid), localIov, remoteIov, 0)
	if err != nil {
		return n, fmt.Errorf("process_vm_writev failed: %w", err)
	}

	return n, nil
}

// WriteMemory writes data to the process memory at the specified address.
// process_vm_writev honours page protections, so a failed write is retried
// through the mem descriptor, which can also write into read-only pages.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	mem := p.memFile()
	if mem == nil {
		return process.ErrProcessNotOpen
	}

	// Create a copy of the data to avoid potential modification during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	written, err := process_vm_writev(p.pid, dataCopy, addr)
	if err == nil && written == len(data) {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}

	if uint64(addr) > math.MaxInt64 {
		return err
	}

	n, memErr := mem.WriteAt(dataCopy, int64(addr))
	if memErr != nil {
		p.log.Debugln("Write failed at", addr.ToString(), err, memErr)
		return fmt.Errorf("failed to write process memory: %w", memErr)
	}
	if n != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes", n, len(data))
	}

	return nil
}
