// events_produce 向事件 topic 投一条假的发布成功事件，测试消费端。
// Sends one fake publish event to the topic so consumers can be tested
// without running the whole chain path.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/announce"
)

func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "kafka brokers, comma-separated")
		topic   = flag.String("topic", "boardpush.events", "event topic")
		boardID = flag.Int("board", 1, "board id for the fake event")
	)
	flag.Parse()

	sink, err := announce.NewKafkaSink(strings.Split(*brokers, ","), *topic, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer sink.Close()

	ev := announce.PublishEvent{
		BoardID:     *boardID,
		TokenID:     int64(*boardID),
		Clock:       "2026-01-02 15:04:05",
		Endpoint:    "http://localhost:8545",
		TxHash:      "0x0000000000000000000000000000000000000000000000000000000000000001",
		GasUsed:     21_000,
		GasPriceWei: "1300000",
		FeeEth:      "0.0000000273",
	}
	if err := sink.Emit(context.Background(), announce.EventPublished, ev); err != nil {
		log.Fatal(err)
	}
	log.Printf("sent %s for board %d to %s", announce.EventPublished, *boardID, *topic)
}
