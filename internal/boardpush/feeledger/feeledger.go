package feeledger

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// HeaderPrefix starts the first line of the ledger file.
const HeaderPrefix = "TOTAL:"

// floatPrec is plenty for 10 decimal digits of ETH across any realistic total.
const floatPrec = 128

// Ledger is the shared running total of publish fees, one file for all
// boards. Line 1 is "TOTAL: <eth>", every following line is one fee entry,
// newest last. Independent worker processes may share the file, so every
// read-modify-write runs under an advisory flock on a sidecar (<path>.lock);
// the in-process mutex covers goroutines sharing one Ledger. The lock is
// held only for the file rewrite, never across a network wait.
type Ledger struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

func New(path string, log zerolog.Logger) *Ledger {
	return &Ledger{
		path: path,
		log:  log.With().Str("component", "feeledger").Logger(),
	}
}

// Path returns the backing file path.
func (l *Ledger) Path() string { return l.path }

// Record appends one fee (in ETH) and bumps the header total. A missing or
// empty file starts from zero. Prior entry lines are carried over verbatim;
// only the header is rewritten. The rewrite goes through tmp+rename so a
// crash mid-write can never leave a torn ledger.
func (l *Ledger) Record(fee *big.Float) error {
	if fee == nil {
		return errors.New("nil fee")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lk := flock.New(l.path + ".lock")
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("lock fee ledger: %w", err)
	}
	defer lk.Unlock()

	total, entries, err := l.readLocked()
	if err != nil {
		return err
	}

	total.Add(total, fee)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", HeaderPrefix, total.Text('f', 10))
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	b.WriteString(fee.Text('f', 10))
	b.WriteByte('\n')

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write fee ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace fee ledger: %w", err)
	}

	l.log.Info().
		Str("added_eth", fee.Text('f', 10)).
		Str("total_eth", total.Text('f', 10)).
		Msg("fee recorded")
	return nil
}

// Load returns the header total and the raw entry lines. Missing file reads
// as an empty ledger.
func (l *Ledger) Load() (*big.Float, []string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk := flock.New(l.path + ".lock")
	if err := lk.RLock(); err != nil {
		return nil, nil, fmt.Errorf("lock fee ledger: %w", err)
	}
	defer lk.Unlock()

	return l.readLocked()
}

// readLocked parses the ledger file. The header is authoritative: if the
// first line is not a TOTAL line the whole file is discarded; if the TOTAL
// line is present but its number does not parse, the total resets to zero
// while the entry lines are kept. History is never summed to rebuild the
// header.
func (l *Ledger) readLocked() (*big.Float, []string, error) {
	total := newFloat()

	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return total, nil, nil
		}
		return nil, nil, fmt.Errorf("read fee ledger: %w", err)
	}

	lines := splitLines(string(raw))
	if len(lines) == 0 {
		return total, nil, nil
	}
	if !strings.HasPrefix(lines[0], HeaderPrefix) {
		l.log.Warn().Str("line", lines[0]).Msg("ledger header missing, starting total from zero")
		return total, nil, nil
	}

	num := strings.TrimSpace(strings.TrimPrefix(lines[0], HeaderPrefix))
	if _, ok := total.SetString(num); !ok {
		l.log.Warn().Str("line", lines[0]).Msg("ledger header unparsable, resetting total to zero")
		total = newFloat()
	}
	return total, lines[1:], nil
}

// ParseEntry parses one fee entry line.
func ParseEntry(line string) (*big.Float, bool) {
	f, ok := newFloat().SetString(strings.TrimSpace(line))
	return f, ok
}

func newFloat() *big.Float {
	return new(big.Float).SetPrec(floatPrec)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
