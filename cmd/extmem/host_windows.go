//go:build windows

package main

import (
	"extmem/process"
	"extmem/process_windows"
)

func defaultHost() process.Host {
	return process_windows.NewHost()
}
