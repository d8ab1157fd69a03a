// Package session attaches to a target process by image name and proxies
// module-relative pointer resolution and typed memory access to it.
package session

import (
	"errors"
	"fmt"

	"extmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// State is the attach state of a Session
type State int

const (
	Unattached State = iota
	Attaching
	Attached
	Failed
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attaching:
		return "attaching"
	case Attached:
		return "attached"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns the handle to one target process and the resolved base of its
// primary module. A Session is not safe for concurrent use.
type Session struct {
	host       process.Host
	targetName string
	moduleName string

	pid        process.ProcessID
	handle     process.Handle
	moduleBase process.ProcessMemoryAddress
	moduleInfo process.ModuleInfo
	state      State
	lastErr    error

	log *logger.Logger
}

// Option configures a Session
type Option func(*Session)

// WithModule resolves the base of module instead of the executable's own image
func WithModule(module string) Option {
	return func(s *Session) {
		s.moduleName = module
	}
}

// New creates a session for targetName and makes one attach attempt.
// Check Attached or LastError for the outcome; Attach may be called again.
func New(host process.Host, targetName string, opts ...Option) *Session {
	s := NewUnattached(host, targetName, opts...)
	_ = s.Attach()
	return s
}

// NewUnattached creates a session without attaching
func NewUnattached(host process.Host, targetName string, opts ...Option) *Session {
	s := &Session{
		host:       host,
		targetName: targetName,
		moduleName: targetName,
		log:        logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "session-"+targetName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach resolves process id, handle, module base and module metadata from
// scratch. Any handle held from a previous attach is released first, and a
// failing step releases whatever the attempt acquired.
func (s *Session) Attach() error {
	s.state = Attaching
	s.release()
	s.lastErr = nil

	pid, err := process.FindProcessID(s.host, s.targetName)
	if err != nil {
		return s.fail(process.ErrProcessNotFound, err)
	}

	handle, err := s.host.Open(pid)
	if err != nil {
		return s.fail(process.ErrHandleDenied, err)
	}

	base, err := process.FindModuleBase(s.host, pid, s.moduleName)
	if err != nil {
		if cerr := handle.Close(); cerr != nil {
			s.log.Warn("Failed to close handle: ", cerr)
		}
		return s.fail(process.ErrModuleNotFound, err)
	}

	info, err := handle.ModuleInfo(base)
	if err != nil {
		s.log.Warn("Module info unavailable: ", err)
		info = process.ModuleInfo{Base: base}
	}

	s.pid = pid
	s.handle = handle
	s.moduleBase = base
	s.moduleInfo = info
	s.state = Attached

	s.log.Infoln("Attached to", s.targetName, "pid", int(pid), "module", s.moduleName, "at", base.ToString())
	return nil
}

func (s *Session) fail(reason error, err error) error {
	s.state = Failed
	s.lastErr = &AttachError{Reason: reason, Target: s.targetName, Err: err}
	s.log.Debugln("Attach failed:", err)
	return s.lastErr
}

// release closes the held handle, if any, and forgets everything resolved from it
func (s *Session) release() {
	if s.handle != nil {
		if err := s.handle.Close(); err != nil {
			s.log.Warn("Failed to close handle: ", err)
		}
		s.handle = nil
	}
	s.pid = 0
	s.moduleBase = 0
	s.moduleInfo = process.ModuleInfo{}
}

// Close releases the process handle. Closing an unattached session is a no-op.
func (s *Session) Close() error {
	if s.handle == nil {
		return nil
	}

	err := s.handle.Close()
	s.handle = nil
	s.pid = 0
	s.moduleBase = 0
	s.moduleInfo = process.ModuleInfo{}
	s.state = Unattached

	s.log.Infoln("Detached from", s.targetName)
	return err
}

// Attached reports whether the last Attach fully succeeded and the session is still open
func (s *Session) Attached() bool {
	return s.state == Attached
}

// State returns the current attach state
func (s *Session) State() State {
	return s.state
}

// Err returns the error of the last failed attach, nil after a successful one
func (s *Session) Err() error {
	return s.lastErr
}

// LastError returns the message of the last failed attach, "" after a successful one
func (s *Session) LastError() string {
	if s.lastErr == nil {
		return ""
	}
	return s.lastErr.Error()
}

// TargetName returns the image name the session was created for
func (s *Session) TargetName() string {
	return s.targetName
}

// ModuleName returns the module whose base anchors Resolve
func (s *Session) ModuleName() string {
	return s.moduleName
}

// ProcessID returns the attached process id, 0 when unattached
func (s *Session) ProcessID() process.ProcessID {
	return s.pid
}

// ModuleBase returns the load base of the module, 0 when unattached
func (s *Session) ModuleBase() process.ProcessMemoryAddress {
	return s.moduleBase
}

// ModuleInfo returns the module metadata cached at attach time.
// It is not refreshed if the target unloads or reloads the module.
func (s *Session) ModuleInfo() process.ModuleInfo {
	return s.moduleInfo
}

func (s *Session) activeHandle() (process.Handle, error) {
	if s.state != Attached || s.handle == nil {
		return nil, ErrNotAttached
	}
	return s.handle, nil
}

// Resolve walks offsets starting at ModuleBase()+offset
func (s *Session) Resolve(offset process.ProcessMemorySize, offsets ...process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	if _, err := s.activeHandle(); err != nil {
		return 0, err
	}
	return s.ResolveAbsolute(s.moduleBase.Add(offset), offsets...)
}

// ResolveAbsolute walks offsets starting at addr
func (s *Session) ResolveAbsolute(addr process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	h, err := s.activeHandle()
	if err != nil {
		return 0, err
	}
	return process.ResolvePointerChain(h, addr, offsets...)
}

// ReadMemory reads size raw bytes at addr
func (s *Session) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	h, err := s.activeHandle()
	if err != nil {
		return nil, err
	}
	return h.ReadMemory(addr, size)
}

// WriteMemory writes data at addr
func (s *Session) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	h, err := s.activeHandle()
	if err != nil {
		return err
	}
	return h.WriteMemory(addr, data)
}

// PointerSize returns the target's pointer width, or the 64-bit width when unattached
func (s *Session) PointerSize() process.ProcessMemorySize {
	h, err := s.activeHandle()
	if err != nil {
		return process.PointerSize64
	}
	return h.PointerSize()
}

// ReadString reads a null-terminated string of at most maxLength bytes at addr.
// Failures yield "".
func (s *Session) ReadString(addr process.ProcessMemoryAddress, maxLength process.ProcessMemorySize) (string, error) {
	if _, err := s.activeHandle(); err != nil {
		return "", err
	}
	return process.ReadString(s, addr, maxLength)
}

// WriteString writes value and its null terminator at addr
func (s *Session) WriteString(addr process.ProcessMemoryAddress, value string) error {
	if _, err := s.activeHandle(); err != nil {
		return err
	}
	return process.WriteString(s, addr, value)
}

// Read reads a T at addr through the session's handle
func Read[T any](s *Session, addr process.ProcessMemoryAddress) (T, error) {
	if _, err := s.activeHandle(); err != nil {
		var zero T
		return zero, err
	}
	return process.Read[T](s, addr)
}

// Write writes value at addr through the session's handle
func Write[T any](s *Session, addr process.ProcessMemoryAddress, value T) error {
	if _, err := s.activeHandle(); err != nil {
		return err
	}
	return process.Write(s, addr, value)
}

// IsAttachFailure reports whether err came from a failed attach
func IsAttachFailure(err error) bool {
	var attachErr *AttachError
	return errors.As(err, &attachErr)
}
