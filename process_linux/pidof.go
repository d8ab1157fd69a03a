//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"extmem/process"
	"extmem/process/memory_map"
)

// ListProcesses snapshots /proc. An entry is named after its executable's
// base name, falling back to comm (which the kernel truncates to 15 bytes)
// when the exe link cannot be read. Entries come back in /proc order.
func ListProcesses() ([]process.ProcessEntry, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	var out []process.ProcessEntry

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}

		entry, ok := readProcessEntry(pid)
		if !ok {
			continue // exited while we were scanning
		}
		out = append(out, entry)
	}

	return out, nil
}

func readProcessEntry(pid int) (process.ProcessEntry, bool) {
	dir := filepath.Join("/proc", strconv.Itoa(pid))
	entry := process.ProcessEntry{PID: process.ProcessID(pid)}

	// Resolve /proc/<pid>/exe symlink; may fail if zombie or permission
	if exe, err := os.Readlink(filepath.Join(dir, "exe")); err == nil && exe != "" {
		entry.Exe, _ = memory_map.TrimDeleted(exe)
		entry.Name = filepath.Base(entry.Exe)
		return entry, true
	}

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return entry, false
	}
	entry.Name = string(bytesTrimNL(comm))
	return entry, entry.Name != ""
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
