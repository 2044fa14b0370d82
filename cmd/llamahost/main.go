// Command llamahost is the CLI/service entry point wiring configuration,
// structured logging, graceful shutdown, installation detection, and the
// detection engine into one binary. Grounded on the teacher's main.go
// dispatch-then-run shape and its service_windows.go/service_other.go split
// for optional OS-service installation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"llamahost/config"
	"llamahost/detection"
	"llamahost/gputelemetry"
	"llamahost/installprobe"
	"llamahost/logging"
	"llamahost/shutdown"
)

func main() {
	if ServiceMain(os.Args) {
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if configPath, rest, ok := extractConfigFlag(args); ok {
		if err := config.LoadYAMLOverrides(configPath, cfg); err != nil {
			return err
		}
		args = rest
	}

	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	mgr := shutdown.NewManager(logger.Zap())
	mgr.Register("logger-sync", 10, func(ctx context.Context) error {
		return logger.Sync()
	})
	mgr.Start()

	runID := uuid.New().String()
	logger.Info("llamahost starting", zap.String("run_id", runID))

	if len(args) == 0 {
		printUsage()
		return nil
	}

	switch args[0] {
	case "detect":
		return cmdDetect(cfg)
	case "benchmark":
		if len(args) < 2 {
			return fmt.Errorf("usage: llamahost benchmark <model.gguf>")
		}
		return cmdBenchmark(context.Background(), cfg, logger, args[1])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// extractConfigFlag pulls a leading "--config <path>" pair out of args,
// returning the path, the remaining args, and whether it was present.
func extractConfigFlag(args []string) (string, []string, bool) {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			rest := append([]string{}, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return args[i+1], rest, true
		}
	}
	return "", args, false
}

func printUsage() {
	fmt.Println("llamahost — local inference server lifecycle manager")
	fmt.Println()
	fmt.Println("Usage: llamahost <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  detect               Locate an installed llama-server/llama-cli pair")
	fmt.Println("  benchmark <model>    Run detection against a GGUF model file")
	fmt.Println("  help                 Show this help message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <path>      Override defaults from a YAML file")
}

func cmdDetect(cfg *config.Config) error {
	handle, err := installprobe.Detect(cfg.InstallRoot)
	if err != nil {
		return err
	}
	if handle == nil {
		fmt.Println(color.YellowString("no installation found under %s", cfg.InstallRoot))
		return nil
	}

	ctx := context.Background()
	version, err := handle.Version(ctx)
	if err != nil {
		return err
	}
	hasCUDA, err := handle.HasCUDA(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", color.GreenString("found:"), handle.RootPath())
	fmt.Printf("  version: %d\n", version)
	fmt.Printf("  cuda:    %v\n", hasCUDA)
	return nil
}

func cmdBenchmark(ctx context.Context, cfg *config.Config, logger *logging.Logger, modelPath string) error {
	handle, err := installprobe.Detect(cfg.InstallRoot)
	if err != nil {
		return err
	}
	if handle == nil {
		return fmt.Errorf("no installation found under %s", cfg.InstallRoot)
	}

	gpu := gputelemetry.Open()
	defer gpu.Close()

	engine := detection.NewEngine(handle, cfg, logger.Zap(), gpu)

	start := time.Now()
	result, err := engine.Run(ctx, modelPath)
	if err != nil {
		return err
	}
	logger.Info("benchmark complete", zap.Duration("elapsed", time.Since(start)))

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
