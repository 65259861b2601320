package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/sop/wslscript/internal/backend"
	"github.com/ubuntu/decorate"
)

// WslOutput mocks running a bash command with captured output. It
// understands the path translation command shape and answers it with fake
// wslpath translations; anything else errors out.
func (b *Backend) WslOutput(ctx context.Context, distro string, command string) (out []byte, err error) {
	defer decorate.OnError(&err, "could not run command in mocked WSL")

	b.WslOutputCallCount++

	if b.WslOutputNotFound {
		return nil, backend.ErrWSLNotFound
	}
	if b.WslOutputError {
		return nil, Error{}
	}
	if b.WslOutputGarbage {
		return []byte{0xc3, 0x28}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return simulateTranslation(command)
}

// StartDetached mocks spawning a console-less WSL process. The launch is
// recorded and the returned process exits immediately.
func (b *Backend) StartDetached(distro string, command string, interactive bool) (p backend.Process, err error) {
	defer decorate.OnError(&err, "could not start mocked WSL process")

	if b.WslOutputNotFound {
		return nil, backend.ErrWSLNotFound
	}
	if b.StartDetachedError {
		return nil, Error{}
	}

	b.Launches = append(b.Launches, Launch{
		Distro:      distro,
		Command:     command,
		Interactive: interactive,
	})
	return process{}, nil
}

type process struct{}

// Wait mocks waiting for the detached process, which exits instantly.
func (process) Wait() error {
	return nil
}

const (
	printfPrefix  = `printf '%s\0'`
	wslpathPrefix = ` "$(wslpath -u '`
)

// simulateTranslation parses a batched wslpath command and answers it the
// way a real shell would: one NUL-terminated converted path per argument.
func simulateTranslation(command string) ([]byte, error) {
	rest, ok := strings.CutPrefix(command, printfPrefix)
	if !ok {
		return nil, fmt.Errorf("unexpected command: %q", command)
	}

	var out strings.Builder
	for len(rest) > 0 {
		rest, ok = strings.CutPrefix(rest, wslpathPrefix)
		if !ok {
			return nil, fmt.Errorf("malformed wslpath argument near %q", rest)
		}
		var winPath string
		winPath, rest, ok = cutQuotedPath(rest)
		if !ok {
			return nil, fmt.Errorf("unterminated wslpath argument near %q", rest)
		}
		out.WriteString(fakeWslpath(winPath))
		out.WriteByte(0)
	}
	return []byte(out.String()), nil
}

// cutQuotedPath undoes single-quote escaping up to the closing ')" of a
// command substitution, returning the raw path and the remaining input.
func cutQuotedPath(s string) (path, rest string, ok bool) {
	var b strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], `'\''`) {
			b.WriteByte('\'')
			i += 4
			continue
		}
		if strings.HasPrefix(s[i:], `')"`) {
			return b.String(), s[i+3:], true
		}
		b.WriteByte(s[i])
		i++
	}
	return "", "", false
}

// fakeWslpath converts a DOS drive path to its /mnt mount point. Paths of
// any other shape pass through unmodified.
func fakeWslpath(winPath string) string {
	if len(winPath) < 2 || winPath[1] != ':' {
		return winPath
	}
	drive := winPath[0] | 0x20 // lowercase
	if drive < 'a' || drive > 'z' {
		return winPath
	}
	rest := strings.ReplaceAll(winPath[2:], `\`, "/")
	rest = strings.TrimPrefix(rest, "/")
	return fmt.Sprintf("/mnt/%c/%s", drive, rest)
}
