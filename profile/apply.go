package profile

import (
	"extmem/process"
	"extmem/session"
)

// Result is the outcome of one profile value against an attached session
type Result struct {
	Value   Value
	Address process.ProcessMemoryAddress
	Text    string
	Written bool
	Err     error
}

// Apply resolves every value, writes the preset ones and reads each back.
// A failing value does not stop the others.
func (p *Profile) Apply(s *session.Session) []Result {
	results := make([]Result, 0, len(p.Values))
	for _, v := range p.Values {
		results = append(results, applyValue(s, v))
	}
	return results
}

func applyValue(s *session.Session, v Value) Result {
	r := Result{Value: v}

	t, err := ParseValueType(v.Type)
	if err != nil {
		r.Err = err
		return r
	}

	if v.Absolute {
		r.Address, r.Err = s.ResolveAbsolute(process.ProcessMemoryAddress(v.Base), v.Chain()...)
	} else {
		r.Address, r.Err = s.Resolve(process.ProcessMemorySize(v.Base), v.Chain()...)
	}
	if r.Err != nil {
		return r
	}

	if v.Set != nil {
		if r.Err = t.Write(s, r.Address, *v.Set); r.Err != nil {
			return r
		}
		r.Written = true
	}

	r.Text, r.Err = t.Read(s, r.Address, process.ProcessMemorySize(v.Length))
	return r
}
