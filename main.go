// Package main is the entry point for the forge application
package main

import (
	"github.com/steelworks/forge/cmd"
)

func main() {
	cmd.Execute()
}
