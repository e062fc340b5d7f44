package board

import (
	"errors"
	"os"
	"strings"
)

// TimestampPrefix marks the trailing line that carries the revision token.
const TimestampPrefix = "Timestamp:"

var (
	ErrEmpty       = errors.New("board file empty")
	ErrNoTimestamp = errors.New("board file missing timestamp line")
)

// Record is one parsed board file: the content lines plus the trailing
// timestamp token that names this revision. Tokens are opaque; they are only
// ever compared for equality.
type Record struct {
	Lines     []string
	Timestamp string
}

// Load reads and parses the board file at path. File-system errors are
// returned as-is so callers can treat a missing file as a wait state.
func Load(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	return Parse(b)
}

// Parse splits raw board bytes into content lines and the revision token.
// The last line must start with TimestampPrefix, otherwise the board is not
// publishable yet and ErrNoTimestamp is returned.
func Parse(raw []byte) (Record, error) {
	lines := splitLines(string(raw))
	if len(lines) == 0 {
		return Record{}, ErrEmpty
	}

	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, TimestampPrefix) {
		return Record{}, ErrNoTimestamp
	}
	ts := strings.TrimSpace(strings.TrimPrefix(last, TimestampPrefix))
	if ts == "" {
		return Record{}, ErrNoTimestamp
	}

	return Record{
		Lines:     lines[:len(lines)-1],
		Timestamp: ts,
	}, nil
}

// splitLines mirrors a text-editor view of the file: CRLF normalized,
// trailing newlines ignored, interior empty lines kept (they are content).
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
