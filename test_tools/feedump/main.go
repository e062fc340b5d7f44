// feedump 打印共享费用账本，并校验表头总额与条目之和的偏差。
// Prints the shared fee ledger and checks the header total against the
// sum of its entries.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/feeledger"
)

func main() {
	var (
		file    = flag.String("file", "fee.txt", "fee ledger path")
		entries = flag.Bool("entries", false, "print every fee entry")
	)
	flag.Parse()

	ledger := feeledger.New(*file, zerolog.Nop())
	total, lines, err := ledger.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("ledger:  %s\n", *file)
	fmt.Printf("total:   %s ETH\n", total.Text('f', 10))
	fmt.Printf("entries: %d\n", len(lines))

	sum := new(big.Float).SetPrec(128)
	unparsable := 0
	for _, line := range lines {
		fee, ok := feeledger.ParseEntry(line)
		if !ok {
			unparsable++
			continue
		}
		sum.Add(sum, fee)
	}
	if unparsable > 0 {
		fmt.Printf("warning: %d unparsable entries\n", unparsable)
	}

	// The header is authoritative, so drift only means the file was
	// hand-edited or recovered from a malformed header.
	drift := new(big.Float).SetPrec(128).Sub(total, sum)
	if drift.Sign() != 0 {
		fmt.Printf("drift:   %s ETH (header - entry sum)\n", drift.Text('f', 10))
	}

	if *entries {
		for i, line := range lines {
			fmt.Printf("%4d  %s\n", i+1, line)
		}
	}
}
