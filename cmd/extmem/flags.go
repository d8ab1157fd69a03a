package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"extmem/process"
	"extmem/profile"
)

// parseNumber accepts decimal and prefixed (0x, 0o, 0b) unsigned integers
func parseNumber(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number %q", s)
	}
	return v, nil
}

// offsetsValue is a pflag.Value collecting pointer-chain offsets.
// Each occurrence may hold a comma-separated list: -o 0x10,0xEC -o 0x4
type offsetsValue struct {
	offsets *[]process.ProcessMemorySize
}

var _ pflag.Value = (*offsetsValue)(nil)

func (o *offsetsValue) String() string {
	if o.offsets == nil {
		return "[]"
	}
	parts := make([]string, 0, len(*o.offsets))
	for _, off := range *o.offsets {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(off), 16))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (o *offsetsValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parseNumber(part)
		if err != nil {
			return err
		}
		*o.offsets = append(*o.offsets, process.ProcessMemorySize(v))
	}
	return nil
}

func (o *offsetsValue) Type() string {
	return "offsets"
}

// typeValue is a pflag.Value restricted to the profile value types
type typeValue struct {
	t *profile.ValueType
}

var _ pflag.Value = (*typeValue)(nil)

func (v *typeValue) String() string {
	return string(*v.t)
}

func (v *typeValue) Set(s string) error {
	t, err := profile.ParseValueType(s)
	if err != nil {
		return err
	}
	*v.t = t
	return nil
}

func (v *typeValue) Type() string {
	return "type"
}

// locationOptions select an address: a base, optionally module-relative,
// followed by a pointer chain
type locationOptions struct {
	offsets  []process.ProcessMemorySize
	absolute bool
}

func addLocationFlags(fs *pflag.FlagSet, l *locationOptions) {
	fs.VarP(&offsetsValue{offsets: &l.offsets}, "offsets", "o", "pointer-chain offsets, comma separated or repeated")
	fs.BoolVarP(&l.absolute, "absolute", "a", false, "treat BASE as an absolute address instead of a module offset")
}

type valueOptions struct {
	t      profile.ValueType
	length uint
}

func addValueFlags(fs *pflag.FlagSet, v *valueOptions) {
	v.t = profile.Int32
	fs.VarP(&typeValue{t: &v.t}, "type", "t", "value type: int8..int64, uint8..uint64, float32, float64, pointer, string, bytes")
	fs.UintVarP(&v.length, "length", "l", uint(process.DefaultStringLength), "window for string and bytes values")
}
