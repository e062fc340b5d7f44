// Package config 加载 boardpush 的 YAML 配置并套用环境变量覆盖。
// Loads the boardpush YAML configuration and applies environment overrides.
//
// Signing keys are intentionally absent from the file format: each board's
// key is read from PRIVATE_KEY<id> by the caller.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/gasprice"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Chain    ChainConfig    `yaml:"chain"`
	Gas      GasConfig      `yaml:"gas"`
	Fees     FeesConfig     `yaml:"fees"`
	Announce AnnounceConfig `yaml:"announce"`
	Boards   []BoardConfig  `yaml:"boards"`
}

type ServiceConfig struct {
	Name                string `yaml:"name"`
	HealthAddr          string `yaml:"health_addr"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	TemplateFile        string `yaml:"template_file"`
	DataDir             string `yaml:"data_dir"`
}

type ChainConfig struct {
	ContractAddress       string   `yaml:"contract_address"` // CONTRACT_ADDRESS overrides
	RPCURLs               []string `yaml:"rpc_urls"`         // RPC_URLS (comma-separated) overrides
	ChainID               uint64   `yaml:"chain_id"`
	StorageKey            string   `yaml:"storage_key"`
	GasLimit              uint64   `yaml:"gas_limit"`
	ReceiptTimeoutSeconds int      `yaml:"receipt_timeout_seconds"`
}

type GasConfig struct {
	BaseWei int64 `yaml:"base_wei"`
	MaxWei  int64 `yaml:"max_wei"`
	StepWei int64 `yaml:"step_wei"`
}

type FeesConfig struct {
	LedgerFile string `yaml:"ledger_file"`
	ArchiveDSN string `yaml:"archive_dsn"` // PG_DSN overrides; empty disables the archive
}

type AnnounceConfig struct {
	Brokers []string `yaml:"brokers"` // KAFKA_BROKERS (comma-separated) overrides; empty disables
	Topic   string   `yaml:"topic"`
}

type BoardConfig struct {
	ID             int    `yaml:"id"`
	TokenID        int64  `yaml:"token_id"` // TOKEN_ID<id> overrides; 0 falls back to ID
	BoardFile      string `yaml:"board_file"`
	CheckpointFile string `yaml:"checkpoint_file"`
}

// Load reads path (optional), applies env overrides, fills defaults and
// validates. A missing file is tolerated; validation then reports whatever
// the environment did not cover. The board fleet itself always comes from
// the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		c.Chain.ContractAddress = v
	}
	if v := os.Getenv("RPC_URLS"); v != "" {
		c.Chain.RPCURLs = splitCSV(v)
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		c.Fees.ArchiveDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Announce.Brokers = splitCSV(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Announce.Topic = v
	}
	for i := range c.Boards {
		b := &c.Boards[i]
		if v := os.Getenv(fmt.Sprintf("TOKEN_ID%d", b.ID)); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				b.TokenID = id
			}
		}
	}
}

func (c *Config) normalize() {
	if c.Service.Name == "" {
		c.Service.Name = "boardpush"
	}
	if c.Service.HealthAddr == "" {
		c.Service.HealthAddr = ":9090"
	}
	if c.Service.PollIntervalSeconds <= 0 {
		c.Service.PollIntervalSeconds = 60
	}
	if c.Service.TemplateFile == "" {
		c.Service.TemplateFile = "template.html"
	}
	if c.Service.DataDir == "" {
		c.Service.DataDir = "./data"
	}
	if c.Fees.LedgerFile == "" {
		c.Fees.LedgerFile = "fee.txt"
	}
	if c.Announce.Topic == "" {
		c.Announce.Topic = "boardpush.events"
	}
	for i := range c.Boards {
		b := &c.Boards[i]
		if b.TokenID == 0 {
			b.TokenID = int64(b.ID)
		}
		if b.BoardFile == "" {
			b.BoardFile = fmt.Sprintf("board%d.txt", b.ID)
		}
		if b.CheckpointFile == "" {
			b.CheckpointFile = fmt.Sprintf("%s/board%d.ckpt", c.Service.DataDir, b.ID)
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Boards) == 0 {
		return fmt.Errorf("no boards configured")
	}
	seen := map[int]bool{}
	for _, b := range c.Boards {
		if b.ID <= 0 {
			return fmt.Errorf("board id must be positive, got %d", b.ID)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate board id %d", b.ID)
		}
		seen[b.ID] = true
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required (or set CONTRACT_ADDRESS)")
	}
	if len(c.Chain.RPCURLs) == 0 {
		return fmt.Errorf("chain.rpc_urls is required (or set RPC_URLS)")
	}
	if c.Gas.BaseWei < 0 || c.Gas.MaxWei < 0 || c.Gas.StepWei < 0 {
		return fmt.Errorf("gas prices must be non-negative")
	}
	if c.Gas.BaseWei > 0 && c.Gas.MaxWei > 0 && c.Gas.MaxWei < c.Gas.BaseWei {
		return fmt.Errorf("gas.max_wei %d below gas.base_wei %d", c.Gas.MaxWei, c.Gas.BaseWei)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Service.PollIntervalSeconds) * time.Second
}

func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.Chain.ReceiptTimeoutSeconds) * time.Second
}

// GasPolicy maps the configured prices into a controller policy. Zero
// fields stay nil so the controller's defaults apply.
func (c *Config) GasPolicy() gasprice.Policy {
	var p gasprice.Policy
	if c.Gas.BaseWei > 0 {
		p.BaseWei = big.NewInt(c.Gas.BaseWei)
	}
	if c.Gas.MaxWei > 0 {
		p.MaxWei = big.NewInt(c.Gas.MaxWei)
	}
	if c.Gas.StepWei > 0 {
		p.StepWei = big.NewInt(c.Gas.StepWei)
	}
	return p
}

// PrivateKeyEnv names the env var holding a board's signing key.
func PrivateKeyEnv(boardID int) string {
	return fmt.Sprintf("PRIVATE_KEY%d", boardID)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
