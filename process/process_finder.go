package process

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// FindProcessID returns the PID of the first process whose image name matches
// name case-insensitively. Enumeration order decides between duplicates.
// A failed snapshot is reported the same way as a missing process.
func FindProcessID(host Host, name string) (ProcessID, error) {
	processes, err := host.Processes()
	if err != nil {
		return 0, fmt.Errorf("%w: %s (snapshot failed: %v)", ErrProcessNotFound, name, err)
	}

	entry, ok := lo.Find(processes, func(item ProcessEntry) bool {
		return strings.EqualFold(item.Name, name)
	})
	if !ok || entry.PID == 0 {
		return 0, fmt.Errorf("%w: %s", ErrProcessNotFound, name)
	}

	return entry.PID, nil
}

// FindModule returns the first module of pid whose name matches moduleName
// case-insensitively. A failed snapshot (permission denied, process exited)
// is indistinguishable from a missing module.
func FindModule(host Host, pid ProcessID, moduleName string) (ModuleEntry, error) {
	modules, err := host.Modules(pid)
	if err != nil {
		return ModuleEntry{}, fmt.Errorf("%w: %s in process %d", ErrModuleNotFound, moduleName, pid)
	}

	module, ok := lo.Find(modules, func(item ModuleEntry) bool {
		return strings.EqualFold(item.Name, moduleName)
	})
	if !ok || module.Base == 0 {
		return ModuleEntry{}, fmt.Errorf("%w: %s in process %d", ErrModuleNotFound, moduleName, pid)
	}

	return module, nil
}

// FindModuleBase returns the load base of moduleName inside pid
func FindModuleBase(host Host, pid ProcessID, moduleName string) (ProcessMemoryAddress, error) {
	module, err := FindModule(host, pid, moduleName)
	if err != nil {
		return 0, err
	}
	return module.Base, nil
}
