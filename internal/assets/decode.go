package assets

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeLossy turns map text into a string without ever failing. Valid UTF-8
// (which includes plain ASCII) is returned as is. Anything else is read as
// Windows-1252, the code page Q3 tools on Windows wrote, and bytes that have
// no mapping become U+FFFD.
func DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(decoded)
}

// nullTerminated returns b up to its first NUL, or all of b if it has none.
func nullTerminated(b []byte) []byte {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		return b[:idx]
	}
	return b
}
