package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/mirrordock/internal/ipc"
)

func printPresetUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mirrordock preset list [--json]")
	fmt.Fprintln(w, "  mirrordock preset apply <name>")
	fmt.Fprintln(w, "  mirrordock preset save <name>")
	fmt.Fprintln(w, "  mirrordock preset delete <name>")
}

func runPreset(args []string) int {
	if len(args) == 0 {
		printPresetUsage(os.Stderr)
		return 2
	}

	client := ipc.NewClient()
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		asJSON := fs.Bool("json", false, "Print as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		names, err := client.ListPresets()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *asJSON {
			if names == nil {
				names = []string{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(names); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			return 0
		}
		for i, name := range names {
			if i < 9 {
				fmt.Printf("%d  %s\n", i+1, name)
			} else {
				fmt.Printf("   %s\n", name)
			}
		}
		return 0

	case "apply", "save", "delete":
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "preset %s requires <name>\n", args[0])
			return 2
		}
		name := args[1]
		var err error
		switch args[0] {
		case "apply":
			var layout *ipc.LayoutData
			layout, err = client.ApplyPreset(name)
			if err == nil {
				fmt.Printf("applied %s: primary (%d,%d) secondary (%d,%d)\n",
					name, layout.PrimaryX, layout.PrimaryY, layout.SecondaryX, layout.SecondaryY)
			}
		case "save":
			err = client.SavePreset(name)
		case "delete":
			err = client.DeletePreset(name)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "help", "-h", "--help":
		printPresetUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown preset command: %s\n\n", args[0])
		printPresetUsage(os.Stderr)
		return 2
	}
}
