//go:build linux

package process_linux

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"extmem/process"
	"extmem/process/memory_map"
)

// pointerSize reports the pointer width of pid from the class of its executable.
// When the executable cannot be inspected the host's width is assumed.
func pointerSize(pid process.ProcessID) process.ProcessMemorySize {
	f, err := elf.Open(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return process.ProcessMemorySize(unsafe.Sizeof(uintptr(0)))
	}
	defer f.Close()

	if f.Class == elf.ELFCLASS32 {
		return process.PointerSize32
	}
	return process.PointerSize64
}

// imageFile returns a path the ELF file behind img can be opened from.
// Live files are reached through /proc/[pid]/root so paths inside another
// mount namespace resolve. A deleted file is only reachable when it is the
// process's own executable, through /proc/[pid]/exe.
func imageFile(pid process.ProcessID, img memory_map.Image) (string, error) {
	if !img.Deleted {
		return filepath.Join(fmt.Sprintf("/proc/%d/root", pid), img.Path), nil
	}

	exeLink := fmt.Sprintf("/proc/%d/exe", pid)
	exe, err := os.Readlink(exeLink)
	if err != nil {
		return "", err
	}
	if exe, _ = memory_map.TrimDeleted(exe); exe != img.Path {
		return "", fmt.Errorf("%s was deleted from disk", img.Path)
	}
	return exeLink, nil
}

// imageEntryPoint returns the runtime entry point of the ELF file at path
// when it is loaded at base
func imageEntryPoint(path string, base process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if f.Entry == 0 {
		return 0, fmt.Errorf("%s has no entry point", path)
	}

	// Position-dependent executables carry absolute addresses
	if f.Type == elf.ET_EXEC {
		return process.ProcessMemoryAddress(f.Entry), nil
	}

	// Shared objects and PIE are relocated by base minus the first PT_LOAD address
	var firstLoad uint64
	found := false
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if !found || prog.Vaddr < firstLoad {
			firstLoad = prog.Vaddr
			found = true
		}
	}

	return base + process.ProcessMemoryAddress(f.Entry-(firstLoad&^0xFFF)), nil
}
