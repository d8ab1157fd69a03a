package profile

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"extmem/process"
)

// ValueType names how the bytes at a resolved address are interpreted
type ValueType string

const (
	Int8    ValueType = "int8"
	Int16   ValueType = "int16"
	Int32   ValueType = "int32"
	Int64   ValueType = "int64"
	Uint8   ValueType = "uint8"
	Uint16  ValueType = "uint16"
	Uint32  ValueType = "uint32"
	Uint64  ValueType = "uint64"
	Float32 ValueType = "float32"
	Float64 ValueType = "float64"
	Pointer ValueType = "pointer"
	String  ValueType = "string"
	Bytes   ValueType = "bytes"
)

// ValueTypes lists every supported type
var ValueTypes = []ValueType{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64, Pointer, String, Bytes}

var typeAliases = map[string]ValueType{
	"byte":   Uint8,
	"short":  Int16,
	"int":    Int32,
	"uint":   Uint32,
	"long":   Int64,
	"float":  Float32,
	"double": Float64,
	"ptr":    Pointer,
	"str":    String,
}

// ParseValueType accepts the type names above and a few C-style aliases
func ParseValueType(name string) (ValueType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	for _, t := range ValueTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", errors.Errorf("unknown value type %q", name)
}

// Size returns the fixed width of t, or 0 for string and bytes
func (t ValueType) Size(ptrSize process.ProcessMemorySize) process.ProcessMemorySize {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case Pointer:
		return ptrSize
	default:
		return 0
	}
}

// Encode converts text to the bytes stored for t. Integers accept any base
// strconv understands (0x.., 0o.., 0b..); bytes accept hex with optional spaces.
func (t ValueType) Encode(text string, ptrSize process.ProcessMemorySize) ([]byte, error) {
	switch t {
	case Int8, Int16, Int32, Int64:
		bits := int(t.Size(ptrSize)) * 8
		v, err := strconv.ParseInt(text, 0, bits)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", t)
		}
		return littleEndian(uint64(v), t.Size(ptrSize)), nil
	case Uint8, Uint16, Uint32, Uint64, Pointer:
		bits := int(t.Size(ptrSize)) * 8
		v, err := strconv.ParseUint(text, 0, bits)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", t)
		}
		return littleEndian(v, t.Size(ptrSize)), nil
	case Float32:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", t)
		}
		return littleEndian(uint64(math.Float32bits(float32(v))), 4), nil
	case Float64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", t)
		}
		return littleEndian(math.Float64bits(v), 8), nil
	case String:
		return append([]byte(text), 0), nil
	case Bytes:
		data, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", t)
		}
		return data, nil
	default:
		return nil, errors.Errorf("unknown value type %q", string(t))
	}
}

// littleEndian returns the low size bytes of v in target byte order
func littleEndian(v uint64, size process.ProcessMemorySize) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out[:size]
}

// Write encodes text as t and stores it at addr
func (t ValueType) Write(mem process.Memory, addr process.ProcessMemoryAddress, text string) error {
	data, err := t.Encode(text, mem.PointerSize())
	if err != nil {
		return err
	}
	return process.WriteBytes(mem, addr, data)
}

// Read loads a t from addr and formats it. length bounds string and bytes
// reads and defaults to process.DefaultStringLength.
func (t ValueType) Read(mem process.MemoryReader, addr process.ProcessMemoryAddress, length process.ProcessMemorySize) (string, error) {
	if length == 0 {
		length = process.DefaultStringLength
	}

	switch t {
	case Int8:
		return formatInt[int8](process.Read[int8](mem, addr))
	case Int16:
		return formatInt[int16](process.Read[int16](mem, addr))
	case Int32:
		return formatInt[int32](process.Read[int32](mem, addr))
	case Int64:
		return formatInt[int64](process.Read[int64](mem, addr))
	case Uint8:
		return formatUint[uint8](process.Read[uint8](mem, addr))
	case Uint16:
		return formatUint[uint16](process.Read[uint16](mem, addr))
	case Uint32:
		return formatUint[uint32](process.Read[uint32](mem, addr))
	case Uint64:
		return formatUint[uint64](process.Read[uint64](mem, addr))
	case Float32:
		v, err := process.Read[float32](mem, addr)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case Float64:
		v, err := process.Read[float64](mem, addr)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case Pointer:
		v, err := process.ReadPointer(mem, addr)
		if err != nil {
			return "", err
		}
		return v.ToString(), nil
	case String:
		return process.ReadString(mem, addr, length)
	case Bytes:
		data, err := process.ReadBytes(mem, addr, length)
		if err != nil {
			return "", err
		}
		return hex.Dump(data), nil
	default:
		return "", errors.Errorf("unknown value type %q", string(t))
	}
}

func formatInt[T int8 | int16 | int32 | int64](v T, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(v), 10), nil
}

func formatUint[T uint8 | uint16 | uint32 | uint64](v T, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(v), 10), nil
}
