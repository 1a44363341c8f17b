package main

import "time"

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// ListFlags holds flags for the list command.
type ListFlags struct {
	Query string
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

// DriveFlags holds flags for start/stop/restart/uninstall commands.
type DriveFlags struct {
	NoWait bool
	// Remote daemon connection
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Listen string
}
