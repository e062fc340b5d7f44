// boardgen 周期性生成 board<ID>.txt 源文件，模拟留言板后端的落盘输出。
// Dev tool: periodically writes board<ID>.txt source files so the publisher
// can be exercised without the real message board backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/board"
	"github.com/chenzhangda16/web3-boardpush/pkg/rng"
)

var users = []string{
	"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi",
}

var phrases = []string{
	"gm everyone",
	"anyone seen the new block explorer?",
	"fees are low today, push it",
	"who keeps resetting the board",
	"test message please ignore",
	"this board lives on chain now",
	"remember to back up your keys",
	"nice update!",
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	var (
		boards   = flag.String("boards", "1", "board ids to generate, comma-separated")
		outDir   = flag.String("out", ".", "directory for board files")
		interval = flag.Duration("interval", 30*time.Second, "write interval")
		maxLines = flag.Int("max-lines", 8, "max message lines per board file")
		det      = flag.Bool("det", false, "deterministic content (reproducible runs)")
		seed     = flag.Int64("seed", 1, "seed for deterministic generation")
	)
	flag.Parse()

	ids, err := parseIDs(*boards)
	if err != nil {
		log.Fatal(err)
	}

	mode := rng.Real
	if *det {
		mode = rng.Deterministic
	}
	rf := rng.New(mode, *seed)
	rUser := rf.R(rng.UserPick)
	rPhrase := rf.R(rng.PhrasePick)
	rCount := rf.R(rng.LineCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Printf("boardgen: ids=%v out=%s interval=%s", ids, *outDir, *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		for _, id := range ids {
			n := 1 + rCount.Intn(*maxLines)
			lines := make([]string, 0, n+1)
			for i := 0; i < n; i++ {
				lines = append(lines, fmt.Sprintf("[%s] %s",
					users[rUser.Intn(len(users))],
					phrases[rPhrase.Intn(len(phrases))]))
			}
			clock := time.Now().Format("2006-01-02 15:04:05")
			lines = append(lines, board.TimestampPrefix+" "+clock)

			path := filepath.Join(*outDir, fmt.Sprintf("board%d.txt", id))
			if err := writeAtomic(path, strings.Join(lines, "\n")+"\n"); err != nil {
				log.Printf("write %s: %v", path, err)
				continue
			}
			log.Printf("wrote %s: %d lines clock=%s", path, n, clock)
		}

		select {
		case <-stop:
			log.Printf("boardgen: stopping")
			return
		case <-ticker.C:
		}
	}
}

func parseIDs(csv string) ([]int, error) {
	var ids []int
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad board id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no board ids given")
	}
	return ids, nil
}

// writeAtomic keeps readers from ever seeing a half-written board file.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
