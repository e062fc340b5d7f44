package feeledger

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fee.txt")
	return New(path, zerolog.Nop()), path
}

func mustFloat(t *testing.T, s string) *big.Float {
	t.Helper()
	f, ok := new(big.Float).SetPrec(floatPrec).SetString(s)
	if !ok {
		t.Fatalf("bad float literal %q", s)
	}
	return f
}

func TestRecordCreatesLedger(t *testing.T) {
	l, path := newTestLedger(t)

	if err := l.Record(mustFloat(t, "0.25")); err != nil {
		t.Fatalf("record: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "TOTAL: 0.2500000000\n0.2500000000\n"
	if string(raw) != want {
		t.Fatalf("ledger file:\n%q\nwant:\n%q", raw, want)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	l, path := newTestLedger(t)
	seed := "TOTAL: 3.0000000000\n1.0000000000\n2.0000000000\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Record(mustFloat(t, "2.5")); err != nil {
		t.Fatalf("record: %v", err)
	}

	total, entries, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if total.Text('f', 10) != "5.5000000000" {
		t.Fatalf("total=%s want 5.5", total.Text('f', 10))
	}
	if len(entries) != 3 || entries[2] != "2.5000000000" {
		t.Fatalf("entries=%v", entries)
	}
}

func TestRecordKeepsPriorEntriesVerbatim(t *testing.T) {
	l, path := newTestLedger(t)
	// A hand-edited entry must not be reformatted on rewrite.
	seed := "TOTAL: 1.5000000000\n1.5\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Record(mustFloat(t, "0.5")); err != nil {
		t.Fatalf("record: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "\n1.5\n") {
		t.Fatalf("prior entry reformatted:\n%s", raw)
	}
}

func TestMalformedHeaderDropsHistory(t *testing.T) {
	l, path := newTestLedger(t)
	seed := "this is not a ledger\n1.0\n2.0\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Record(mustFloat(t, "5.0")); err != nil {
		t.Fatalf("record: %v", err)
	}

	total, entries, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if total.Text('f', 10) != "5.0000000000" {
		t.Fatalf("total=%s want 5.0", total.Text('f', 10))
	}
	if len(entries) != 1 || entries[0] != "5.0000000000" {
		t.Fatalf("entries=%v want only the new fee", entries)
	}
}

func TestUnparsableTotalResetsButKeepsEntries(t *testing.T) {
	l, path := newTestLedger(t)
	seed := "TOTAL: not-a-number\n1.2500000000\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Record(mustFloat(t, "0.25")); err != nil {
		t.Fatalf("record: %v", err)
	}

	total, entries, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Header is authoritative: history is not summed back in.
	if total.Text('f', 10) != "0.2500000000" {
		t.Fatalf("total=%s want 0.25", total.Text('f', 10))
	}
	if len(entries) != 2 || entries[0] != "1.2500000000" {
		t.Fatalf("entries=%v want prior entry kept", entries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l, _ := newTestLedger(t)
	total, entries, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if total.Sign() != 0 || len(entries) != 0 {
		t.Fatalf("want empty ledger, got total=%s entries=%v", total, entries)
	}
}

func TestConcurrentRecords(t *testing.T) {
	l, _ := newTestLedger(t)

	const n = 24
	fee := "0.25" // binary-exact so the expected total is exact too

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Record(mustFloat(t, fee))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	total, entries, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if total.Text('f', 10) != "6.0000000000" {
		t.Fatalf("total=%s want 6.0", total.Text('f', 10))
	}
	if len(entries) != n {
		t.Fatalf("entries=%d want %d", len(entries), n)
	}
}

func TestParseEntry(t *testing.T) {
	if _, ok := ParseEntry("1.2500000000"); !ok {
		t.Fatal("want parse ok")
	}
	if _, ok := ParseEntry("garbage"); ok {
		t.Fatal("want parse failure")
	}
}
