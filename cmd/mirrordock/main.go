package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(runApp(nil))
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runApp(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "screenshot":
		os.Exit(runScreenshot(os.Args[2:]))
	case "quit":
		os.Exit(runQuit(os.Args[2:]))
	case "preset":
		os.Exit(runPreset(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mirrordock [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start mirroring and docking (default)")
	fmt.Fprintln(w, "  status              Show dock status")
	fmt.Fprintln(w, "  toggle              Dock or undock both screens")
	fmt.Fprintln(w, "  focus <surface>     Bring primary or secondary to the front")
	fmt.Fprintln(w, "  screenshot          Save the docked container as a PNG")
	fmt.Fprintln(w, "  quit                Stop the running instance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  preset list         List saved layout presets")
	fmt.Fprintln(w, "  preset apply        Apply a preset")
	fmt.Fprintln(w, "  preset save         Save the current layout as a preset")
	fmt.Fprintln(w, "  preset delete       Delete a preset")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'mirrordock <command> --help' for command-specific options.")
}

// parseNoArgs parses a flag set for a command without positional arguments.
// It returns -1 to continue or the exit code to stop with.
func parseNoArgs(name, summary string, args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mirrordock %s\n", name)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	return -1
}

func runStatus(args []string) int {
	if code := parseNoArgs("status", "Show dock status via IPC.", args); code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("state:            %s\n", status.State)
	fmt.Printf("running:          %v\n", status.Running)
	fmt.Printf("primary_found:    %v\n", status.PrimaryFound)
	fmt.Printf("secondary_found:  %v\n", status.SecondaryFound)
	fmt.Printf("container_exists: %v\n", status.ContainerExists)
	fmt.Printf("scale:            %.2f\n", status.Scale)
	fmt.Printf("layout:           primary (%d,%d) secondary (%d,%d)\n",
		status.Layout.PrimaryX, status.Layout.PrimaryY, status.Layout.SecondaryX, status.Layout.SecondaryY)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	return 0
}

func runToggle(args []string) int {
	if code := parseNoArgs("toggle", "Dock or undock both screens.", args); code >= 0 {
		return code
	}

	state, err := ipc.NewClient().Toggle()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(state)
	return 0
}

func runFocus(args []string) int {
	if len(args) != 1 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage: mirrordock focus <primary|secondary>")
		return 2
	}
	if err := ipc.NewClient().Focus(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runScreenshot(args []string) int {
	if code := parseNoArgs("screenshot", "Save the docked container as a PNG and copy its path to the clipboard.", args); code >= 0 {
		return code
	}

	path, err := ipc.NewClient().Screenshot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(path)
	return 0
}

func runQuit(args []string) int {
	if code := parseNoArgs("quit", "Stop the running instance.", args); code >= 0 {
		return code
	}

	if err := ipc.NewClient().Quit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}
