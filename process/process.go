// Package process provides the host contract and the memory primitives used to
// inspect and modify another process: locating a process and its modules,
// walking pointer chains and typed reads/writes at resolved addresses.
package process

import "errors"

// Types live in their own files:
// - types.go: ProcessID, ProcessEntry, ModuleEntry, ModuleInfo
// - memory_types.go: ProcessMemoryAddress, ProcessMemorySize
// - process_interface.go: Host, Handle and the memory surfaces
// - process_finder.go: process and module locators
// - path.go: pointer chain resolution
// - memory_access.go: typed and string accessors

var (
	// ErrProcessNotFound is returned when no running process matches the requested image name.
	ErrProcessNotFound = errors.New("process not found")

	// ErrHandleDenied is returned when the operating system refuses to open the process.
	ErrHandleDenied = errors.New("process handle denied")

	// ErrModuleNotFound is returned when no loaded module matches the requested name,
	// including the case where the module list could not be enumerated at all.
	ErrModuleNotFound = errors.New("module not found")

	// ErrChainRead is returned when a pointer chain dereference fails mid-walk.
	ErrChainRead = errors.New("pointer chain read failed")

	// ErrIO is returned when a read or write at a resolved address fails.
	ErrIO = errors.New("memory io failed")

	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)
