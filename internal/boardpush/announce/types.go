package announce

import (
	"encoding/json"
)

const (
	EventPublished     = "board_published"
	EventPublishFailed = "board_publish_failed"
)

type Envelope struct {
	Type string          `json:"type"` // e.g. "board_published"
	TS   int64           `json:"ts"`   // unix milli
	Data json.RawMessage `json:"data"`
}

type PublishEvent struct {
	BoardID     int    `json:"board_id"`
	TokenID     int64  `json:"token_id"`
	Clock       string `json:"clock"`
	Endpoint    string `json:"endpoint"`
	TxHash      string `json:"tx_hash"`
	GasUsed     uint64 `json:"gas_used"`
	GasPriceWei string `json:"gas_price_wei"`
	FeeEth      string `json:"fee_eth"`
}

type PublishFailure struct {
	BoardID int    `json:"board_id"`
	Clock   string `json:"clock"`
	Error   string `json:"error"`
}
