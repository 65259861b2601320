package windows

// This file spawns wsl.exe, either silently with captured output for path
// translation, or detached behind cmd.exe for the final interactive launch.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/sop/wslscript/internal/backend"
	"golang.org/x/sys/windows"
)

// WslOutput runs `wsl.exe [-d distro] -e bash -c command` with no visible
// window and returns its raw stdout.
func (Backend) WslOutput(ctx context.Context, distro string, command string) ([]byte, error) {
	wslExe, err := wslBinPath()
	if err != nil {
		return nil, err
	}

	var args []string
	if distro != "" {
		args = append(args, "-d", distro)
	}
	args = append(args, "-e", "bash", "-c", command)

	cmd := exec.CommandContext(ctx, wslExe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wsl.exe exited with status %d: %s", exitErr.ExitCode(), exitErr.Stderr)
		}
		return nil, fmt.Errorf("could not run wsl.exe: %w", err)
	}
	return out, nil
}

// process wraps a detached child so the launcher can wait for it. A
// non-zero exit status is not an error: the exit behaviour belongs to the
// spawned shell per the hold-mode contract.
type process struct {
	cmd *exec.Cmd
}

func (p process) Wait() error {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// StartDetached spawns `cmd.exe /C wsl.exe [-d distro] -e bash [-i] -c
// command` as a detached process in a new process group so this program
// can exit and have the script execute on its own. Stdio is nulled: the
// WSL host manages the visible terminal window itself.
func (Backend) StartDetached(distro string, command string, interactive bool) (backend.Process, error) {
	wslExe, err := wslBinPath()
	if err != nil {
		return nil, err
	}

	args := []string{"/C", wslExe}
	if distro != "" {
		args = append(args, "-d", distro)
	}
	args = append(args, "-e", "bash")
	if interactive {
		args = append(args, "-i")
	}
	args = append(args, "-c", command)

	cmd := exec.Command(cmdBinPath(), args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start WSL host process: %w", err)
	}
	return process{cmd: cmd}, nil
}

// cmdBinPath returns the path to the Windows command prompt executable.
func cmdBinPath() string {
	// If %COMSPEC% points to an existing file.
	if p := os.Getenv("COMSPEC"); p != "" && isFile(p) {
		return p
	}
	// Try %SYSTEMROOT%\System32\cmd.exe.
	if root := os.Getenv("SYSTEMROOT"); root != "" {
		p := filepath.Join(root, "System32", "cmd.exe")
		if isFile(p) {
			return p
		}
	}
	// Hardcoded fallback.
	return `C:\Windows\System32\cmd.exe`
}

// wslBinPath returns the path to the WSL executable.
func wslBinPath() (string, error) {
	if root := os.Getenv("SYSTEMROOT"); root != "" {
		p := filepath.Join(root, "System32", "wsl.exe")
		if isFile(p) {
			return p, nil
		}
	}
	return "", backend.ErrWSLNotFound
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
