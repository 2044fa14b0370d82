//go:build windows

// service_windows.go implements Windows service install/start/stop for
// llamahost via github.com/kardianos/service, letting a long-running
// switcher be registered as a background service rather than run
// interactively; grounded verbatim in shape on the teacher's
// service_windows.go.
package main

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
)

// program wraps the switcher's lifecycle for the Windows service manager.
// The actual switcher wiring lives in run(); program only owns the
// start/stop signaling kardianos/service requires.
type program struct {
	stop chan struct{}
}

func (p *program) Start(s service.Service) error {
	p.stop = make(chan struct{})
	go func() {
		_ = run(nil)
		close(p.stop)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	return nil
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "llamahost",
		DisplayName: "llamahost inference server manager",
		Description: "Supervises llama-server, detects working configurations, and switches between models.",
	}
}

// ServiceMain is the entry point for service management commands.
func ServiceMain(args []string) bool {
	return HandleServiceCommand(args)
}

// HandleServiceCommand dispatches install/uninstall/start/stop/restart/status
// against the Windows service manager. Returns true if it handled args.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}

	prg := &program{}
	svc, err := service.New(prg, serviceConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var svcErr error
	switch args[1] {
	case "install":
		svcErr = svc.Install()
	case "uninstall", "remove":
		svcErr = svc.Uninstall()
	case "start":
		svcErr = svc.Start()
	case "stop":
		svcErr = svc.Stop()
	case "restart":
		svcErr = svc.Restart()
	case "status":
		status, statusErr := svc.Status()
		if statusErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", statusErr)
			os.Exit(1)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("service is running")
		case service.StatusStopped:
			fmt.Println("service is stopped")
		default:
			fmt.Println("service status unknown")
		}
		return true
	default:
		return false
	}

	if svcErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", svcErr)
		os.Exit(1)
	}
	return true
}
