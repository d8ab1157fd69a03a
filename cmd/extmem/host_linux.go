//go:build linux

package main

import (
	"extmem/process"
	"extmem/process_linux"
)

func defaultHost() process.Host {
	return process_linux.NewHost()
}
