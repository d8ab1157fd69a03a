package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Parse reads memory map lines in the /proc/[pid]/maps format:
//
//	00400000-0040b000 r-xp 00000000 08:01 1234    /usr/bin/cat
//
// Malformed lines are skipped. Paths keep their inner whitespace, and the
// " (deleted)" marker of unlinked files is moved into Deleted.
func Parse(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields, path := splitMapsLine(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
		}

		if len(fields) > 2 {
			if offset, err := strconv.ParseUint(fields[2], 16, 64); err == nil {
				item.Offset = offset
			}
		}

		item.Path, item.Deleted = TrimDeleted(path)

		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return memoryMap, nil
}

// DeletedSuffix is appended by the kernel to paths whose file was unlinked
// or replaced after being mapped
const DeletedSuffix = " (deleted)"

// TrimDeleted strips DeletedSuffix from path, reporting whether it was present
func TrimDeleted(path string) (string, bool) {
	if trimmed, ok := strings.CutSuffix(path, DeletedSuffix); ok {
		return trimmed, true
	}
	return path, false
}

// splitMapsLine returns the first five columns of a maps line and the rest
// of the line verbatim, minus the padding the kernel puts before the path
func splitMapsLine(line string) ([]string, string) {
	fields := make([]string, 0, 5)
	rest := line
	for len(fields) < 5 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, strings.TrimLeft(rest, " \t")
}
