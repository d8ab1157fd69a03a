package process

import (
	"bytes"
	"fmt"
	"unsafe"
)

// DefaultStringLength is the usual ReadString window
const DefaultStringLength ProcessMemorySize = 100

// Read reads a value of type T at addr by reinterpreting unsafe.Sizeof(T) raw
// bytes. T must be plain data: fixed-size numbers, arrays and structs of them.
// A failed read returns the zero T together with an ErrIO error.
func Read[T any](mem MemoryReader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := mem.ReadMemory(addr, size)
	if err != nil {
		return t, fmt.Errorf("%w: read %d bytes at %s: %w", ErrIO, size, addr.ToString(), err)
	}
	if len(data) < int(size) {
		return t, fmt.Errorf("%w: short read at %s: %d of %d bytes", ErrIO, addr.ToString(), len(data), size)
	}

	copyTo(&t, data)
	return t, nil
}

// Write writes the raw bytes of value at addr
func Write[T any](mem MemoryWriter, addr ProcessMemoryAddress, value T) error {
	size := int(unsafe.Sizeof(value))
	if size == 0 {
		return nil
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(&value)), size)
	data := make([]byte, size)
	copy(data, src)

	return WriteBytes(mem, addr, data)
}

// ReadBytes reads size raw bytes at addr
func ReadBytes(mem MemoryReader, addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	data, err := mem.ReadMemory(addr, size)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at %s: %w", ErrIO, size, addr.ToString(), err)
	}
	return data, nil
}

// WriteBytes writes data at addr
func WriteBytes(mem MemoryWriter, addr ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := mem.WriteMemory(addr, data); err != nil {
		return fmt.Errorf("%w: write %d bytes at %s: %w", ErrIO, len(data), addr.ToString(), err)
	}
	return nil
}

// ReadString reads a null-terminated string of at most maxLength bytes.
// The read buffer starts zeroed, so a failed read yields "" along with the error.
// When no terminator appears inside the window the whole window is returned.
func ReadString(mem MemoryReader, addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error) {
	if maxLength == 0 {
		return "", nil
	}

	buf := make([]byte, maxLength)
	data, err := mem.ReadMemory(addr, maxLength)
	if err != nil {
		return "", fmt.Errorf("%w: read string at %s: %w", ErrIO, addr.ToString(), err)
	}
	copy(buf, data)

	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return string(buf), nil
}

// WriteString writes value followed by a null terminator, len(value)+1 bytes.
// The destination is not checked against the target's allocation.
func WriteString(mem MemoryWriter, addr ProcessMemoryAddress, value string) error {
	data := make([]byte, len(value)+1)
	copy(data, value)
	return WriteBytes(mem, addr, data)
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}
