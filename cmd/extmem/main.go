package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultHost()).Execute(); err != nil {
		os.Exit(1)
	}
}
