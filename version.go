package main

var (
	// version is set during build via ldflags
	Version = "v0.1.0"
	// commit is set during build via ldflags.
	Commit = "none"
	// date is set during build via ldflags.
	Date = "unknown"
)
