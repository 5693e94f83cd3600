// Package main is the entry point for the orbit CLI.
package main

import (
	"go.uber.org/automaxprocs/maxprocs"

	"gooze.dev/pkg/orbit/cmd"
)

func main() {
	_, _ = maxprocs.Set()

	cmd.Execute()
}
