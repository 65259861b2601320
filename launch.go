package wslscript

// This file spawns the WSL host process with a composed command. The
// process is detached so the calling program can exit immediately; only
// when a spill file was used does the launcher linger to clean it up.

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/sop/wslscript/internal/backend"
	"github.com/sop/wslscript/internal/launchgate"
)

// gate counts in-flight launch workers. A shared-library host queries it
// through ActiveLaunches before unloading.
var gate launchgate.Gate

// RunWSL composes and launches the script with the given arguments.
// Paths must be in WSL context.
func RunWSL(ctx context.Context, scriptPath string, args []string, opts Options) error {
	composed, err := Compose(ctx, scriptPath, args, opts)
	if err != nil {
		return err
	}
	return launch(ctx, composed, opts)
}

// launch spawns the WSL host process detached. If the composed command
// carries a spill file, launch blocks until the process exits and then
// deletes the file.
func launch(ctx context.Context, composed Composed, opts Options) error {
	log.Debugf("bash command: %s", composed.Text)
	proc, err := selectBackend(ctx).StartDetached(opts.Distribution, composed.Text, opts.Interactive)
	if err != nil {
		removeSpillFile(composed)
		if errors.Is(err, backend.ErrWSLNotFound) {
			return ErrWSLNotFound
		}
		return fmt.Errorf("%w: %v", ErrProcessStart, err)
	}
	if composed.SpillFile != "" {
		// The arguments are read during startup; wait for the process
		// to be done with the file rather than guessing with a timer.
		if err := proc.Wait(); err != nil {
			log.Warnf("wait on WSL process: %v", err)
		}
		removeSpillFile(composed)
	}
	return nil
}

// Execute runs the first of paths as a script inside WSL with the remaining
// paths as its arguments. Paths are Windows paths; they are canonicalized
// and converted to WSL context first, reporting progress per batch.
func Execute(ctx context.Context, paths []string, opts Options, progress ProgressFunc) error {
	if len(paths) == 0 {
		return ErrInvalidPath
	}
	canonical := make([]string, len(paths))
	for i, p := range paths {
		canonical[i] = canonicalPath(p)
	}

	// Ensure we are not invoked on our own executable.
	if exe, err := selectBackend(ctx).CurrentExecutable(); err == nil {
		if canonicalPath(exe) == canonical[0] {
			return ErrInvalidPath
		}
	}

	wslPaths, err := PathsToWSL(ctx, canonical, opts, progress)
	if err != nil {
		return err
	}
	if len(wslPaths) != len(canonical) {
		return ErrTranslationFailed
	}
	return RunWSL(ctx, wslPaths[0], wslPaths[1:], opts)
}

// ExecuteDetached runs Execute on a worker goroutine guarded by the launch
// gate. The returned channel receives the single outcome and is closed
// afterwards; the gate is released as the worker's very last action.
func ExecuteDetached(ctx context.Context, paths []string, opts Options, progress ProgressFunc) <-chan error {
	done := make(chan error, 1)
	gate.Add()
	go func() {
		defer gate.Done()
		defer close(done)
		done <- Execute(ctx, paths, opts, progress)
	}()
	return done
}

// ActiveLaunches returns the number of in-flight launch workers.
func ActiveLaunches() int {
	return gate.Active()
}

// WaitForLaunches blocks until all in-flight launch workers have finished
// or the context expires.
func WaitForLaunches(ctx context.Context) error {
	return gate.Wait(ctx)
}

// canonicalPath resolves a path as far as the host allows and strips the
// \\?\ long-path prefix: the shell handler command line does not accept
// that form.
func canonicalPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return stripExtendedPrefix(p)
}

// stripExtendedPrefix removes the Windows extended-length path prefix.
func stripExtendedPrefix(p string) string {
	if len(p) >= 8 && p[:8] == `\\?\UNC\` {
		return `\\` + p[8:]
	}
	if len(p) >= 4 && p[:4] == `\\?\` {
		return p[4:]
	}
	return p
}
