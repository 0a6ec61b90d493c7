// Package main provides the entry point for the camt-attest CLI application.
package main

import (
	"fmt"
	"os"

	"fjacquet/camt-attest/cmd/attest"
	"fjacquet/camt-attest/cmd/keyhash"
	"fjacquet/camt-attest/cmd/members"
	"fjacquet/camt-attest/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(attest.Cmd)
	root.Cmd.AddCommand(members.Cmd)
	root.Cmd.AddCommand(keyhash.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
