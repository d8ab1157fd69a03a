//go:build !linux && !windows

package main

import (
	"runtime"

	"github.com/pkg/errors"

	"extmem/process"
)

type unsupportedHost struct{}

func defaultHost() process.Host {
	return unsupportedHost{}
}

func (unsupportedHost) Processes() ([]process.ProcessEntry, error) {
	return nil, errors.Errorf("process access is not supported on %s", runtime.GOOS)
}

func (unsupportedHost) Modules(process.ProcessID) ([]process.ModuleEntry, error) {
	return nil, errors.Errorf("process access is not supported on %s", runtime.GOOS)
}

func (unsupportedHost) Open(process.ProcessID) (process.Handle, error) {
	return nil, errors.Wrapf(process.ErrHandleDenied, "process access is not supported on %s", runtime.GOOS)
}
