package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/ipc"
	"github.com/1broseidon/mirrordock/internal/logging"
	"github.com/1broseidon/mirrordock/internal/mcp"
)

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mirrordock mcp <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve    Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'mirrordock mcp <command> --help' for command-specific options.")
}

func runMCP(args []string) int {
	if len(args) == 0 {
		printMCPUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "serve":
		return runMCPServe(args[1:])
	case "help", "-h", "--help":
		printMCPUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n", args[0])
		printMCPUsage(os.Stderr)
		return 2
	}
}

func runMCPServe(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: mirrordock mcp serve")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Start the MCP server on stdio. Tools talk to the running mirrordock")
		fmt.Fprintln(os.Stdout, "instance over its IPC socket.")
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// stdout carries the protocol, so logs only go to the file.
	logCfg := cfg.GetLoggingConfig()
	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      logCfg.File,
		MaxSizeMB: logCfg.MaxSizeMB,
		MaxFiles:  logCfg.MaxFiles,
	})
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer closer.Close()

	server := mcp.NewServer(ipc.NewClient(), logger.With("component", "mcp"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
	return 0
}
