package process

import "fmt"

// ProcessID represents a unique identifier for a process, 0 means unresolved
type ProcessID int

// ProcessEntry is one row of a process snapshot
type ProcessEntry struct {
	PID  ProcessID // Process ID
	Name string    // Image name used for matching (e.g. "ac_client.exe")
	Exe  string    // Full path to the executable when the host exposes it
}

// ModuleEntry is one row of a module snapshot
type ModuleEntry struct {
	Name string               // Module file name (e.g. "kernel32.dll", "libc.so.6")
	Path string               // Full path of the backing image
	Base ProcessMemoryAddress // Load base in the target's address space
	Size ProcessMemorySize    // Size of the loaded image
}

func (m ModuleEntry) String() string {
	return fmt.Sprintf("%s @ %s (%s)", m.Name, m.Base.ToString(), m.Size.ToString())
}

// ModuleInfo is the metadata cached for an attached module
type ModuleInfo struct {
	Base       ProcessMemoryAddress
	Size       ProcessMemorySize
	EntryPoint ProcessMemoryAddress
}

// Contains reports whether addr falls inside the module image
func (m ModuleInfo) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.Base+ProcessMemoryAddress(m.Size)
}
