package memory_map

import (
	"fmt"
	"path/filepath"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset of the region within the backing file
	Path    string // Backing file, pseudo name ("[heap]") or empty for anonymous memory
	Deleted bool   // The backing file was unlinked or replaced on disk
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

// End returns the first address past the region
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// IsFileBacked reports whether the region maps a file on disk
func (mmItem MemoryMapItem) IsFileBacked() bool {
	return filepath.IsAbs(mmItem.Path)
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// Image is a file mapped into a process, spanning all regions that share its path
type Image struct {
	Path    string
	Address uint64 // Lowest mapped address of the image
	Size    uint   // Distance from Address to the end of the highest region
	Deleted bool   // The file on disk is no longer the one mapped
}

// Name returns the file name of the image
func (img Image) Name() string {
	return filepath.Base(img.Path)
}

// Images groups file-backed regions by path, in order of first appearance.
// A deleted file and its replacement mapped under the same path stay apart.
// The memory map is expected in address order as the kernel reports it.
func Images(memoryMap []MemoryMapItem) []Image {
	var images []Image
	type imageKey struct {
		path    string
		deleted bool
	}
	index := make(map[imageKey]int)

	for _, item := range memoryMap {
		if !item.IsFileBacked() {
			continue
		}

		key := imageKey{item.Path, item.Deleted}
		i, ok := index[key]
		if !ok {
			index[key] = len(images)
			images = append(images, Image{Path: item.Path, Address: item.Address, Size: item.Size, Deleted: item.Deleted})
			continue
		}

		img := &images[i]
		end := img.Address + uint64(img.Size)
		if item.Address < img.Address {
			img.Address = item.Address
		}
		if item.End() > end {
			end = item.End()
		}
		img.Size = uint(end - img.Address)
	}

	return images
}

// GetMemoryRegionForAddress returns the memory region containing an address.
// memoryMap must be sorted by address.
func GetMemoryRegionForAddress(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}
	return nil
}
