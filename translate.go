package wslscript

// This file converts batches of Windows paths to their WSL equivalents by
// invoking `wslpath -u` inside the target distribution. Conversions are
// batched to respect the Windows command line length limit.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/sop/wslscript/internal/backend"
	"github.com/sop/wslscript/internal/decode"
)

const (
	// maxCmdLen is the maximum command line length on Windows.
	maxCmdLen = 8191
	// maxPath is the traditional Windows MAX_PATH.
	maxPath = 260

	// translateBatchCeiling leaves headroom for one maximum-length path
	// plus fixed command overhead per batch.
	translateBatchCeiling = maxCmdLen - maxPath - 100
)

// ProgressFunc reports translation progress. It is invoked after each
// completed batch with the cumulative number of paths translated and the
// total. Returning false stops the translation: no further batches are
// issued and the operation ends with ErrCancelled.
type ProgressFunc func(done, total int) bool

// PathsToWSL converts Windows paths to WSL equivalents.
//
// Multiple paths are converted per wsl.exe invocation, up to the maximum
// command line length. Converted paths are returned in the same order as
// given. On cancellation, whether through the progress callback or the
// context, no partial result is returned.
func PathsToWSL(ctx context.Context, paths []string, opts Options, progress ProgressFunc) ([]string, error) {
	wslPaths := make([]string, 0, len(paths))
	idx := 0
	for idx < len(paths) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		// Build a printf command that prints NUL separated results.
		var printf strings.Builder
		printf.WriteString(`printf '%s\0'`)
		for idx < len(paths) && printf.Len() < translateBatchCeiling {
			printf.WriteString(` "$(wslpath -u '`)
			printf.WriteString(EscapeSingleQuotes(paths[idx]))
			printf.WriteString(`')"`)
			idx++
		}
		log.Debugf("printf command length %d", printf.Len())

		out, err := selectBackend(ctx).WslOutput(ctx, opts.Distribution, printf.String())
		if err != nil {
			if errors.Is(err, backend.ErrWSLNotFound) {
				return nil, ErrWSLNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
		}

		converted, err := parseTranslationOutput(out)
		if err != nil {
			return nil, err
		}
		wslPaths = append(wslPaths, converted...)

		if progress != nil && !progress(idx, len(paths)) {
			log.Debugf("translation cancelled after %d of %d paths", idx, len(paths))
			return nil, ErrCancelled
		}
	}
	log.Debugf("converted %d Windows paths to WSL", len(wslPaths))
	return wslPaths, nil
}

// PathToWSL converts a single Windows path to its WSL equivalent.
func PathToWSL(ctx context.Context, path string, opts Options) (string, error) {
	paths, err := PathsToWSL(ctx, []string{path}, opts, nil)
	if err != nil {
		return "", err
	}
	if len(paths) != 1 {
		return "", ErrTranslationFailed
	}
	return paths[0], nil
}

// parseTranslationOutput splits the NUL separated wslpath results, trimming
// the empty trailing field produced by the final NUL.
func parseTranslationOutput(out []byte) ([]string, error) {
	text, err := decode.Output(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPathEncoding, err)
	}
	text = strings.Trim(strings.TrimSpace(text), "\x00")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\x00"), nil
}
