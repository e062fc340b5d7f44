// events_consume 消费 boardpush 事件 topic 并打印信封内容，联调用。
// Consumes the boardpush event topic and prints decoded envelopes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"strings"

	"github.com/IBM/sarama"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/announce"
)

type Handler struct{}

func (Handler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (Handler) Cleanup(sarama.ConsumerGroupSession) error { return nil }
func (Handler) ConsumeClaim(
	s sarama.ConsumerGroupSession,
	c sarama.ConsumerGroupClaim,
) error {
	for msg := range c.Messages() {
		var env announce.Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			log.Printf("bad envelope at offset %d: %v", msg.Offset, err)
			s.MarkMessage(msg, "")
			continue
		}
		log.Printf(
			"type=%s ts=%d partition=%d offset=%d data=%s",
			env.Type,
			env.TS,
			msg.Partition,
			msg.Offset,
			string(env.Data),
		)
		s.MarkMessage(msg, "")
	}
	return nil
}

func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "kafka brokers, comma-separated")
		topic   = flag.String("topic", "boardpush.events", "event topic")
		group   = flag.String("group", "boardpush-test_tools", "consumer group id")
	)
	flag.Parse()

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	cg, err := sarama.NewConsumerGroup(strings.Split(*brokers, ","), *group, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cg.Close()

	for {
		if err := cg.Consume(context.Background(), []string{*topic}, Handler{}); err != nil {
			log.Fatal(err)
		}
	}
}
