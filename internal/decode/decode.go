// Package decode converts console output from Windows subprocesses to UTF-8
// strings. wsl.exe emits UTF-16LE for its own messages while programs running
// inside a distribution emit UTF-8, so the encoding is detected from the
// byte order mark.
package decode

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// ErrInvalidText is returned when the output is not valid text in any of
// the recognized encodings.
var ErrInvalidText = errors.New("output is not valid text")

// Output decodes raw subprocess output to a UTF-8 string.
//
// A UTF-16 BOM selects the matching UTF-16 decoder. Otherwise the bytes
// must already be valid UTF-8; a leading UTF-8 BOM is stripped.
func Output(data []byte) (string, error) {
	if enc := bomEncoding(data); enc != nil {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", ErrInvalidText
		}
		// The decoder maps the BOM to U+FEFF, drop it.
		return string(bytes.TrimPrefix(decoded, []byte("\uFEFF"))), nil
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	return string(data), nil
}

// bomEncoding returns the UTF-16 encoding indicated by a byte order mark,
// or nil when the data carries none.
func bomEncoding(data []byte) encoding.Encoding {
	if len(data) < 2 {
		return nil
	}
	if data[0] == 0xFF && data[1] == 0xFE {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	if data[0] == 0xFE && data[1] == 0xFF {
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	}
	return nil
}
