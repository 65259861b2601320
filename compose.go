package wslscript

// This file builds the bash command that runs a script inside WSL: change to
// the script's directory, invoke it, pass its arguments and append the
// hold-mode behaviour. Argument lists too long for a command line are
// spilled to a temporary file and read back with bash's mapfile builtin.

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/ubuntu/decorate"
)

// maxBashLen is the maximum length of the composed bash command, leaving
// headroom for two maximum-length paths and fixed wsl.exe overhead.
const maxBashLen = maxCmdLen - maxPath - maxPath - 20

// spillThreshold is the heuristic pre-check: when the raw argument bytes
// exceed half the command line limit the spill form is built right away.
// The exact post-check in Compose still applies either way.
const spillThreshold = maxCmdLen / 2

// holdSuffix is the exact bash fragment appended for HoldAlways and
// HoldError. WSL-side parsing is exact-string sensitive, do not reformat.
const holdSuffix = ` { printf >&2 '\n[Process exited - exit code %d] ' "$?"; read -n 1 -s; }`

// Composed is a bash command ready to hand to the launcher.
type Composed struct {
	// Text is the bash command line.
	Text string
	// SpillFile is the Windows path of the temporary argument file, or ""
	// when the arguments fit inline. The caller deletes it once the
	// spawned process no longer needs it.
	SpillFile string
}

// Compose builds the bash command that executes scriptPath with args.
// Both the script path and the arguments must already be in WSL context.
//
// If the composed command exceeds the maximum length, composition is
// retried with the arguments forced into a spill file; if even that form is
// too long the result is ErrCommandTooLong. The heuristic pre-check and the
// exact post-check intentionally coexist: the former works on raw argument
// lengths and can miss in both directions.
func Compose(ctx context.Context, scriptPath string, args []string, opts Options) (Composed, error) {
	composed, err := compose(ctx, scriptPath, args, opts, false)
	if err != nil {
		return Composed{}, err
	}
	if len(composed.Text) <= maxBashLen {
		return composed, nil
	}

	// Retry and force the arguments into a temporary file.
	removeSpillFile(composed)
	composed, err = compose(ctx, scriptPath, args, opts, true)
	if err != nil {
		return Composed{}, err
	}
	if len(composed.Text) > maxBashLen {
		removeSpillFile(composed)
		return Composed{}, ErrCommandTooLong
	}
	return composed, nil
}

func compose(ctx context.Context, scriptPath string, args []string, opts Options, forceSpill bool) (c Composed, err error) {
	defer decorate.OnError(&err, "could not compose command for %s", scriptPath)

	dir, file, err := splitScriptPath(scriptPath)
	if err != nil {
		return Composed{}, err
	}

	var cmd strings.Builder

	spill := forceSpill
	if !spill {
		rawLen := 0
		for _, arg := range args {
			rawLen += len(arg)
		}
		spill = rawLen > spillThreshold
	}
	if spill {
		spillFile, err := writeSpillFile(args)
		if err != nil {
			return Composed{}, err
		}
		wslPath, err := PathToWSL(ctx, spillFile, opts)
		if err != nil {
			removeSpillFile(Composed{SpillFile: spillFile})
			return Composed{}, err
		}
		c.SpillFile = spillFile
		// Read the arguments from the temporary file into $args.
		cmd.WriteString(`mapfile -d '' -t args < '`)
		cmd.WriteString(EscapeSingleQuotes(wslPath))
		cmd.WriteString(`' && `)
	}

	// cd 'dir' && './progname'
	cmd.WriteString(`cd '`)
	cmd.WriteString(EscapeSingleQuotes(dir))
	cmd.WriteString(`' && './`)
	cmd.WriteString(EscapeSingleQuotes(file))
	cmd.WriteString(`'`)

	if spill {
		cmd.WriteString(` "${args[@]}"`)
	} else {
		for _, arg := range args {
			cmd.WriteString(` '`)
			cmd.WriteString(EscapeSingleQuotes(arg))
			cmd.WriteString(`'`)
		}
	}

	// Commands after the script exits.
	switch opts.HoldMode {
	case HoldNever:
	case HoldAlways:
		cmd.WriteString(";")
		cmd.WriteString(holdSuffix)
	case HoldError:
		cmd.WriteString(" ||")
		cmd.WriteString(holdSuffix)
	}

	c.Text = cmd.String()
	return c, nil
}

// splitScriptPath splits a script path into directory and file name,
// accepting both separator styles so that paths are handled the same before
// and after WSL conversion.
func splitScriptPath(scriptPath string) (dir, file string, err error) {
	sep := strings.LastIndexAny(scriptPath, `/\`)
	if sep < 0 {
		return "", "", ErrInvalidPath
	}
	dir, file = scriptPath[:sep], scriptPath[sep+1:]
	if sep == 0 {
		// Script at the filesystem root.
		dir = scriptPath[:1]
	}
	if dir == "" || file == "" {
		return "", "", ErrInvalidPath
	}
	return dir, file, nil
}

// writeSpillFile writes the arguments to a fresh temporary file as a NUL
// separated UTF-8 list and returns its Windows path.
func writeSpillFile(args []string) (string, error) {
	for _, arg := range args {
		if !utf8.ValidString(arg) {
			return "", fmt.Errorf("%w: %q", ErrPathEncoding, arg)
		}
	}
	f, err := os.CreateTemp("", "wsl*.tmp")
	if err != nil {
		return "", fmt.Errorf("could not create argument file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(strings.Join(args, "\x00")); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("could not write argument file: %w", err)
	}
	log.Debugf("args written to %s", f.Name())
	return f.Name(), nil
}

// removeSpillFile deletes the spill file of a composed command, if any.
// Failure to delete is logged, never fatal.
func removeSpillFile(c Composed) {
	if c.SpillFile == "" {
		return
	}
	log.Debugf("removing temporary file %s", c.SpillFile)
	if err := os.Remove(c.SpillFile); err != nil {
		log.Debugf("failed to remove temporary file: %v", err)
	}
}
