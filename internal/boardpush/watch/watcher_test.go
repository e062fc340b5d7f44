package watch

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/announce"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/gasprice"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/submit"
)

type fakePublisher struct {
	docs []string
	res  *submit.Result
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, doc string) (*submit.Result, error) {
	p.docs = append(p.docs, doc)
	if p.err != nil {
		return nil, p.err
	}
	return p.res, nil
}

type capturedEvent struct {
	typ string
	v   any
}

type captureSink struct {
	events []capturedEvent
}

func (s *captureSink) Emit(ctx context.Context, typ string, v any) error {
	s.events = append(s.events, capturedEvent{typ: typ, v: v})
	return nil
}

func (s *captureSink) Close() error { return nil }

func okResult() *submit.Result {
	return &submit.Result{
		Endpoint:    "http://a",
		TxHash:      common.HexToHash("0x01"),
		GasUsed:     21_000,
		GasPriceWei: big.NewInt(1_300_000),
		FeeWei:      big.NewInt(27_300_000_000),
		FeeEth:      big.NewFloat(0.0000000273),
	}
}

type testEnv struct {
	w    *Watcher
	pub  *fakePublisher
	sink *captureSink
	dir  string
}

func writeBoard(t *testing.T, dir string, lines []string, clock string) {
	t.Helper()
	content := strings.Join(append(append([]string{}, lines...), "Timestamp: "+clock), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "board3.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	template := `<html><body data-board="<!--BOARD_ID-->"><script>const rows = <!--BOARD_DATA-->;</script><footer><!--LAST_UPDATE_TIME--></footer></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "template.html"), []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}

	pub := &fakePublisher{res: okResult()}
	sink := &captureSink{}
	w, err := New(Config{
		BoardID:        3,
		TokenID:        3,
		BoardPath:      filepath.Join(dir, "board3.txt"),
		TemplatePath:   filepath.Join(dir, "template.html"),
		CheckpointPath: filepath.Join(dir, "board3.ckpt"),
	}, pub, gasprice.New(gasprice.Policy{}), sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return &testEnv{w: w, pub: pub, sink: sink, dir: dir}
}

func TestCyclePublishesNewClock(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"hello", "world"}, "t1")

	env.w.cycle(context.Background())

	if len(env.pub.docs) != 1 {
		t.Fatalf("publish calls=%d want 1", len(env.pub.docs))
	}
	doc := env.pub.docs[0]
	if !strings.Contains(doc, `["hello","world"]`) {
		t.Fatalf("doc missing board data: %s", doc)
	}
	if !strings.Contains(doc, `data-board="3"`) || !strings.Contains(doc, "<footer>t1</footer>") {
		t.Fatalf("doc missing id or clock: %s", doc)
	}
}

func TestCycleIdempotentSkip(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"a"}, "t1")

	env.w.cycle(context.Background())
	env.w.cycle(context.Background())

	if len(env.pub.docs) != 1 {
		t.Fatalf("publish calls=%d want 1 (identical clock must not republish)", len(env.pub.docs))
	}
}

func TestCycleRetriesSameClockAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"a"}, "t1")

	env.pub.err = errors.New("all endpoints failed")
	env.w.cycle(context.Background())
	if env.w.lastPublished != "" {
		t.Fatalf("lastPublished=%q after failure, want empty", env.w.lastPublished)
	}

	env.pub.err = nil
	env.w.cycle(context.Background())

	if len(env.pub.docs) != 2 {
		t.Fatalf("publish calls=%d want 2", len(env.pub.docs))
	}
	if env.pub.docs[0] != env.pub.docs[1] {
		t.Fatal("retry must republish identical content")
	}
	if env.w.lastPublished != "t1" {
		t.Fatalf("lastPublished=%q want t1", env.w.lastPublished)
	}
}

func TestCyclePublishesNewestClockAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"v1"}, "t1")

	env.pub.err = errors.New("down")
	env.w.cycle(context.Background())

	// The source moved on while the first attempt was failing.
	writeBoard(t, env.dir, []string{"v2"}, "t2")
	env.pub.err = nil
	env.w.cycle(context.Background())

	last := env.pub.docs[len(env.pub.docs)-1]
	if !strings.Contains(last, `["v2"]`) || !strings.Contains(last, "<footer>t2</footer>") {
		t.Fatalf("want newest content published, got: %s", last)
	}
}

func TestCycleWaitsOnMissingOrMalformedSource(t *testing.T) {
	env := newTestEnv(t)

	// no board file at all
	env.w.cycle(context.Background())

	// empty file
	if err := os.WriteFile(filepath.Join(env.dir, "board3.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	env.w.cycle(context.Background())

	// content without a clock line
	if err := os.WriteFile(filepath.Join(env.dir, "board3.txt"), []byte("just data\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.w.cycle(context.Background())

	if len(env.pub.docs) != 0 {
		t.Fatalf("publish calls=%d want 0", len(env.pub.docs))
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"a"}, "t1")
	env.w.cycle(context.Background())

	raw, err := os.ReadFile(filepath.Join(env.dir, "board3.ckpt"))
	if err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "t1" {
		t.Fatalf("checkpoint=%q want t1", raw)
	}

	// A restarted watcher must not republish the checkpointed clock.
	pub2 := &fakePublisher{res: okResult()}
	w2, err := New(Config{
		BoardID:        3,
		BoardPath:      filepath.Join(env.dir, "board3.txt"),
		TemplatePath:   filepath.Join(env.dir, "template.html"),
		CheckpointPath: filepath.Join(env.dir, "board3.ckpt"),
	}, pub2, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if clock, ok, err := w2.ckpt.Load(); err != nil || !ok || clock != "t1" {
		t.Fatalf("reload checkpoint: clock=%q ok=%v err=%v", clock, ok, err)
	}
	w2.lastPublished = "t1"
	w2.cycle(context.Background())
	if len(pub2.docs) != 0 {
		t.Fatalf("publish calls=%d after restart with same clock", len(pub2.docs))
	}
}

func TestAnnounceEvents(t *testing.T) {
	env := newTestEnv(t)
	writeBoard(t, env.dir, []string{"a"}, "t1")

	env.pub.err = errors.New("all endpoints failed")
	env.w.cycle(context.Background())
	env.pub.err = nil
	env.w.cycle(context.Background())

	if len(env.sink.events) != 2 {
		t.Fatalf("events=%d want 2", len(env.sink.events))
	}
	if env.sink.events[0].typ != announce.EventPublishFailed {
		t.Fatalf("event[0]=%s", env.sink.events[0].typ)
	}
	if env.sink.events[1].typ != announce.EventPublished {
		t.Fatalf("event[1]=%s", env.sink.events[1].typ)
	}
	ev, ok := env.sink.events[1].v.(announce.PublishEvent)
	if !ok {
		t.Fatalf("event payload %T", env.sink.events[1].v)
	}
	if ev.BoardID != 3 || ev.Clock != "t1" || ev.TxHash != okResult().TxHash.Hex() {
		t.Fatalf("event=%+v", ev)
	}
}

func TestConfigDefaults(t *testing.T) {
	w, err := New(Config{BoardID: 5, CheckpointPath: filepath.Join(t.TempDir(), "b.ckpt")},
		&fakePublisher{res: okResult()}, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if w.cfg.BoardPath != "board5.txt" {
		t.Fatalf("board path=%q", w.cfg.BoardPath)
	}
	if w.cfg.TemplatePath != "template.html" {
		t.Fatalf("template path=%q", w.cfg.TemplatePath)
	}
	if w.cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("poll=%s", w.cfg.PollInterval)
	}
}

func TestFileCheckpointMissing(t *testing.T) {
	ck, err := NewFileCheckpoint(filepath.Join(t.TempDir(), "nested", "b.ckpt"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := ck.Load(); err != nil || ok {
		t.Fatalf("ok=%v err=%v want cold start", ok, err)
	}
	if err := ck.Save("t9"); err != nil {
		t.Fatal(err)
	}
	clock, ok, err := ck.Load()
	if err != nil || !ok || clock != "t9" {
		t.Fatalf("clock=%q ok=%v err=%v", clock, ok, err)
	}
}
