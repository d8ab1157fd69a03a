// Package profile loads target profiles: which process to attach to, which
// module anchors the addresses, and the values to resolve, read and patch.
//
//	process: ac_client.exe
//	retry-interval: 1s
//	values:
//	  - name: health
//	    base: 0x17E0A8
//	    offsets: [0xEC]
//	    type: int32
//	    set: "999"
package profile

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"

	"extmem/process"
)

// Profile describes one target and the values of interest inside it
type Profile struct {
	// Process is the image name of the target, matched case-insensitively
	Process string `yaml:"process"`
	// Module anchors value bases; empty means the process image itself
	Module string `yaml:"module,omitempty"`
	// RetryInterval is the delay between attach attempts, e.g. "500ms"
	RetryInterval string `yaml:"retry-interval,omitempty"`

	Values []Value `yaml:"values"`
}

// Value is a pointer chain anchored at the module base (or at an absolute
// address) and the type stored at its end
type Value struct {
	Name     string   `yaml:"name"`
	Base     uint64   `yaml:"base"`
	Offsets  []uint64 `yaml:"offsets,omitempty"`
	Absolute bool     `yaml:"absolute,omitempty"`
	Type     string   `yaml:"type"`
	// Length is the window for string and bytes values
	Length uint `yaml:"length,omitempty"`
	// Set, when present, is written before the value is read back
	Set *string `yaml:"set,omitempty"`
}

// Load reads and validates the profile at path
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read profile")
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", path)
	}
	return p, nil
}

// Parse decodes and validates a profile document
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, errors.Wrap(err, "unable to decode profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes p to path as YAML
func Save(path string, p *Profile) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "unable to encode profile")
	}
	return errors.WithStack(os.WriteFile(path, out, 0o644))
}

// Validate checks that the profile names a process, that value names are
// unique and that every type and preset value can be encoded
func (p *Profile) Validate() error {
	if p.Process == "" {
		return errors.New("profile has no process")
	}
	if _, err := p.Interval(); err != nil {
		return err
	}

	dupes := lo.FindDuplicates(lo.Map(p.Values, func(v Value, _ int) string { return v.Name }))
	if len(dupes) > 0 {
		return errors.Errorf("duplicate value names: %v", dupes)
	}

	for _, v := range p.Values {
		if v.Name == "" {
			return errors.New("value without a name")
		}
		t, err := ParseValueType(v.Type)
		if err != nil {
			return errors.Wrapf(err, "value %s", v.Name)
		}
		if v.Set != nil {
			if _, err := t.Encode(*v.Set, process.PointerSize64); err != nil {
				return errors.Wrapf(err, "value %s", v.Name)
			}
		}
	}
	return nil
}

// ModuleName returns the anchoring module, defaulting to the process image
func (p *Profile) ModuleName() string {
	if p.Module == "" {
		return p.Process
	}
	return p.Module
}

// Interval parses RetryInterval; an empty interval is zero
func (p *Profile) Interval() (time.Duration, error) {
	if p.RetryInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.RetryInterval)
	if err != nil {
		return 0, errors.Wrap(err, "retry-interval")
	}
	if d < 0 {
		return 0, errors.Errorf("retry-interval %s is negative", d)
	}
	return d, nil
}

// Chain returns the offsets as pointer-chain offsets
func (v Value) Chain() []process.ProcessMemorySize {
	return lo.Map(v.Offsets, func(off uint64, _ int) process.ProcessMemorySize {
		return process.ProcessMemorySize(off)
	})
}

func (v Value) String() string {
	anchor := "module"
	if v.Absolute {
		anchor = "absolute"
	}
	return fmt.Sprintf("%s %s %s+0x%X %v", v.Name, v.Type, anchor, v.Base, lo.Map(v.Offsets, func(off uint64, _ int) string {
		return fmt.Sprintf("0x%X", off)
	}))
}
