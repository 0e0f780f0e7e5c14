// Package main implements event-desk, a CLI that pages through a remote event
// feed and keeps the records in a local SQLite cache.
package main

import (
	"fmt"
	"os"

	"event-desk/cmd"
)

func main() {
	cmd.SetVersionInfo(Version, Commit, Date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
