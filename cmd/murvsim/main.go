// Package main provides the murvsim command line.
// murvsim is a cycle-level simulator of a 5-stage pipelined RV32I core.
package main

import "github.com/tebeka/atexit"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
