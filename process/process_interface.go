package process

// Host is the operating system surface the locators and sessions depend on.
// Every call is a self-contained snapshot: nothing is cached between calls.
type Host interface {
	// Processes returns a snapshot of the running processes in enumeration order
	Processes() ([]ProcessEntry, error)

	// Modules returns a snapshot of the modules loaded in pid in enumeration order
	Modules(pid ProcessID) ([]ModuleEntry, error)

	// Open requests full access to pid. A denied request wraps ErrHandleDenied.
	Open(pid ProcessID) (Handle, error)
}

// Handle is an exclusively owned, privileged reference to a target process.
// It must be closed exactly once; Close on a closed handle is a no-op.
type Handle interface {
	Memory

	// PID returns the process the handle refers to
	PID() ProcessID

	// ModuleInfo queries size and entry point for the module loaded at base
	ModuleInfo(base ProcessMemoryAddress) (ModuleInfo, error)

	// Close releases the handle
	Close() error
}

// MemoryReader reads raw bytes from a target address space
type MemoryReader interface {
	// ReadMemory reads exactly size bytes at addr
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// PointerSize returns the pointer width of the target, 4 or 8
	PointerSize() ProcessMemorySize
}

// MemoryWriter writes raw bytes into a target address space
type MemoryWriter interface {
	// WriteMemory writes all of data at addr
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// Memory combines MemoryReader and MemoryWriter
type Memory interface {
	MemoryReader
	MemoryWriter
}
