//go:build !windows

// service_other.go provides stubs for service management on non-Windows
// platforms, where kardianos/service installation is not applicable;
// grounded on the teacher's service_other.go split.
package main

import "fmt"

// ServiceMain is the entry point for service management commands. On
// non-Windows platforms this only recognizes "help" and prints a pointer
// toward systemd/launchd; it never handles the binary's normal commands.
func ServiceMain(args []string) bool {
	return HandleServiceCommand(args)
}

// HandleServiceCommand reports whether args named a service-management
// subcommand and, if so, handles it (printing a not-supported notice on
// this platform) and returns true so main skips its normal dispatch.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}

	switch args[1] {
	case "install", "uninstall", "remove", "start", "stop", "restart", "status":
		fmt.Println("Service commands are only available on Windows.")
		fmt.Println("On Linux/macOS, run llamahost under systemd or launchd instead.")
		return true
	default:
		return false
	}
}
