// wslscript runs Windows-side shell scripts in WSL and manages the file
// extension associations that make them double-clickable.
//
// Usage:
//
//	wslscript <file>                         run a dropped script
//	wslscript [options] -E <script> [args…]  run a script directly
//	wslscript --register <ext> [options]     associate an extension
//	wslscript --unregister <ext>             remove an association
//	wslscript --list                         list associated extensions
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/sop/wslscript"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}

	// Direct invocation: everything before -E are options, everything
	// after is the script followed by its arguments.
	for i, arg := range args {
		if arg == "-E" {
			if i+1 == len(args) {
				usage(os.Stderr)
				return 2
			}
			opts := wslscript.OptionsFromArgs(ctx, args[:i])
			return execute(ctx, args[i+1:], opts)
		}
	}

	switch args[0] {
	case "--register":
		return register(ctx, args[1:])
	case "--unregister":
		return unregister(ctx, args[1:])
	case "--list":
		return list(ctx)
	case "--help":
		usage(os.Stdout)
		return 0
	}

	// Drag and drop: a single existing file.
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			opts, err := dropOptions(ctx, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
				return 1
			}
			return execute(ctx, args[:1], opts)
		}
	}

	usage(os.Stderr)
	return 2
}

// execute translates the paths and launches the first one as a script with
// the rest as its arguments, showing per-batch progress on a terminal.
func execute(ctx context.Context, paths []string, opts wslscript.Options) int {
	var progress wslscript.ProgressFunc
	if term.IsTerminal(int(os.Stderr.Fd())) {
		progress = func(done, total int) bool {
			fmt.Fprintf(os.Stderr, "\rconverting paths %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
			return true
		}
	}

	if err := wslscript.Execute(ctx, paths, opts, progress); err != nil {
		fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
		return 1
	}
	return 0
}

// dropOptions resolves the options for a dropped file: its registered
// configuration when there is one, defaults for plain .sh files.
func dropOptions(ctx context.Context, path string) (wslscript.Options, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return wslscript.Options{}, fmt.Errorf("%s has no extension", path)
	}

	registered, err := wslscript.IsRegisteredForWSL(ctx, ext)
	if err != nil {
		log.Debugf("registration lookup for .%s: %v", ext, err)
	}
	if registered {
		opts, err := wslscript.OptionsFromExt(ctx, ext)
		if err != nil {
			log.Warnf("could not load .%s configuration, using defaults: %v", ext, err)
			return wslscript.DefaultOptions(), nil
		}
		return opts, nil
	}
	if strings.EqualFold(ext, "sh") {
		return wslscript.DefaultOptions(), nil
	}
	return wslscript.Options{}, fmt.Errorf(".%s is not registered for WSL", ext)
}

// register associates an extension, reusing the option tokens of direct
// invocation: `-h <mode>`, `-i` and `-d <distro-name>`.
func register(ctx context.Context, args []string) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}

	config := wslscript.ExtConfig{
		Extension: strings.TrimPrefix(args[0], "."),
		HoldMode:  wslscript.HoldError,
	}
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-h":
			if i+1 < len(args) {
				i++
				config.HoldMode = wslscript.ParseHoldMode(args[i], config.HoldMode)
			}
		case "-i":
			config.Interactive = true
		case "-d":
			if i+1 < len(args) {
				i++
				id, err := distroIDByName(ctx, args[i])
				if err != nil {
					fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
					return 1
				}
				config.Distro = &id
			}
		}
	}

	if err := wslscript.Register(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
		return 1
	}
	fmt.Printf("Registered .%s\n", config.Extension)
	return 0
}

func unregister(ctx context.Context, args []string) int {
	if len(args) != 1 {
		usage(os.Stderr)
		return 2
	}
	ext := strings.TrimPrefix(args[0], ".")
	if err := wslscript.Unregister(ctx, ext); err != nil {
		fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
		return 1
	}
	fmt.Printf("Unregistered .%s\n", ext)
	return 0
}

func list(ctx context.Context) int {
	exts, err := wslscript.RegisteredExtensions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wslscript: %v\n", err)
		return 1
	}
	for _, ext := range exts {
		fmt.Printf(".%s\n", ext)
	}
	return 0
}

// distroIDByName maps a display name to its GUID via the installed
// distribution snapshot.
func distroIDByName(ctx context.Context, name string) (wslscript.DistroID, error) {
	distros, err := wslscript.QueryDistros(ctx)
	if err != nil {
		return wslscript.DistroID{}, err
	}
	for id, display := range distros.List {
		if display == name {
			return id, nil
		}
	}
	return wslscript.DistroID{}, fmt.Errorf("no installed distribution named %q", name)
}

func usage(w *os.File) {
	fmt.Fprintf(w, `Usage:
  wslscript <file>                         run a dropped script in WSL
  wslscript [options] -E <script> [args]   run a script with arguments
  wslscript --register <ext> [options]     associate a file extension
  wslscript --unregister <ext>             remove an association
  wslscript --list                         list associated extensions

Options:
  --ext <name>   use the configuration registered for an extension
  -h <mode>      hold mode after exit: never, always or error
  -i             run bash as an interactive shell
  -d <name>      target distribution (default distribution if omitted)
`)
}
