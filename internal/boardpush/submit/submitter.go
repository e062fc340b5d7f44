// Package submit 把渲染好的看板 HTML 写入链上存储合约。
// Drives one publish attempt across the configured RPC endpoints,
// escalating the gas price on timeouts and recording fees on success.
package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/contract"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/gasprice"
)

const (
	// DefaultGasLimit matches the storage contract's worst-case document write.
	DefaultGasLimit = 29_504_000

	DefaultReceiptTimeout      = 60 * time.Second
	DefaultReceiptPollInterval = time.Second
)

// ErrAllEndpointsFailed reports that a publish attempt exhausted every endpoint.
var ErrAllEndpointsFailed = errors.New("all endpoints failed")

var (
	errUnreachable    = errors.New("endpoint unreachable")
	errWrongChain     = errors.New("unexpected chain id")
	errRejected       = errors.New("transaction rejected")
	errReceiptTimeout = errors.New("timed out waiting for receipt")
)

// FeeRecorder receives the fee (in ETH) of each confirmed publish.
type FeeRecorder interface {
	Record(fee *big.Float) error
}

// Config carries the per-board submission parameters.
type Config struct {
	// Endpoints are tried in order on every attempt. No health memory
	// is kept across attempts.
	Endpoints []string

	TokenID    *big.Int
	StorageKey common.Hash

	// ChainID pins the expected network. 0 accepts whatever each
	// endpoint reports.
	ChainID uint64

	GasLimit            uint64
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
}

// Result describes one confirmed publish.
type Result struct {
	Endpoint    string
	TxHash      common.Hash
	GasUsed     uint64
	GasPriceWei *big.Int
	FeeWei      *big.Int
	FeeEth      *big.Float
}

// Submitter writes rendered documents to the storage contract. It owns no
// goroutines; Publish runs synchronously in the caller's loop.
type Submitter struct {
	cfg     Config
	binding *contract.BoardStorageBinding
	signer  Signer
	gas     *gasprice.Controller
	fees    FeeRecorder
	dial    Dialer
	log     zerolog.Logger
}

func New(cfg Config, binding *contract.BoardStorageBinding, signer Signer, gas *gasprice.Controller, fees FeeRecorder, log zerolog.Logger) (*Submitter, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}
	if binding == nil {
		return nil, fmt.Errorf("contract binding must be provided")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer must be provided")
	}
	if gas == nil {
		return nil, fmt.Errorf("gas price controller must be provided")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee recorder must be provided")
	}
	if cfg.TokenID == nil {
		return nil, fmt.Errorf("token id must be provided")
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = DefaultReceiptTimeout
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = DefaultReceiptPollInterval
	}
	return &Submitter{
		cfg:     cfg,
		binding: binding,
		signer:  signer,
		gas:     gas,
		fees:    fees,
		dial:    DialEndpoint,
		log:     log.With().Str("component", "submitter").Logger(),
	}, nil
}

// Publish attempts to write doc to the storage contract, trying each endpoint
// in order. The first confirmed write short-circuits: its fee is recorded and
// the gas price resets to base. A timeout or transport failure escalates the
// price before moving on; an explicit rejection does not.
func (s *Submitter) Publish(ctx context.Context, doc string) (*Result, error) {
	calldata, err := s.binding.BuildStoreCalldata(s.cfg.TokenID, s.cfg.StorageKey, doc)
	if err != nil {
		return nil, fmt.Errorf("build calldata: %w", err)
	}

	s.log.Info().Int("endpoints", len(s.cfg.Endpoints)).Msg("Publishing board update")

	for _, url := range s.cfg.Endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := s.tryEndpoint(ctx, url, calldata)
		if err == nil {
			if ferr := s.fees.Record(res.FeeEth); ferr != nil {
				// The publish already landed on chain; fee accounting
				// is best-effort.
				s.log.Error().Err(ferr).Str("tx_hash", res.TxHash.Hex()).Msg("Failed to record fee")
			}
			s.gas.Reset()
			s.log.Info().
				Str("endpoint", res.Endpoint).
				Str("tx_hash", res.TxHash.Hex()).
				Uint64("gas_used", res.GasUsed).
				Str("gas_price_wei", res.GasPriceWei.String()).
				Str("fee_eth", res.FeeEth.Text('f', 10)).
				Msg("Successfully published board update")
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch {
		case errors.Is(err, errUnreachable), errors.Is(err, errWrongChain):
			s.log.Warn().Err(err).Str("endpoint", url).Msg("Skipping endpoint")
		case errors.Is(err, errRejected):
			s.log.Warn().Err(err).Str("endpoint", url).Msg("Transaction rejected, trying next endpoint")
		default:
			next, saturated := s.gas.Escalate()
			ev := s.log.Warn().Err(err).Str("endpoint", url).Str("gas_price_wei", next.String())
			if saturated {
				ev.Msg("Submission failed at maximum gas price")
			} else {
				ev.Msg("Submission failed, escalating gas price")
			}
		}
	}
	return nil, ErrAllEndpointsFailed
}

func (s *Submitter) tryEndpoint(ctx context.Context, url string, calldata []byte) (*Result, error) {
	client, err := s.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnreachable, err)
	}
	defer client.Close()

	// Reachability probe, and the chain id the signature commits to.
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id probe: %v", errUnreachable, err)
	}
	if s.cfg.ChainID != 0 && chainID.Uint64() != s.cfg.ChainID {
		return nil, fmt.Errorf("%w: endpoint reports %s, configured %d", errWrongChain, chainID, s.cfg.ChainID)
	}

	price := s.gas.Current()
	from := s.signer.From()
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	to := s.binding.Address()
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      s.cfg.GasLimit,
		GasPrice: price,
		Data:     calldata,
	})
	signed, err := s.signer.SignTx(unsigned, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	s.log.Info().
		Str("endpoint", url).
		Str("tx_hash", signed.Hash().Hex()).
		Uint64("nonce", nonce).
		Str("gas_price_wei", price.String()).
		Msg("Transaction sent, waiting for receipt")

	receipt, err := s.waitReceipt(ctx, client, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%w: tx %s", errRejected, signed.Hash().Hex())
	}

	feeWei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price)
	feeEth := new(big.Float).SetPrec(128).Quo(
		new(big.Float).SetPrec(128).SetInt(feeWei),
		new(big.Float).SetPrec(128).SetInt(big.NewInt(params.Ether)),
	)
	return &Result{
		Endpoint:    url,
		TxHash:      signed.Hash(),
		GasUsed:     receipt.GasUsed,
		GasPriceWei: price,
		FeeWei:      feeWei,
		FeeEth:      feeEth,
	}, nil
}

// waitReceipt polls until the transaction lands or ReceiptTimeout passes.
func (s *Submitter) waitReceipt(ctx context.Context, client EthClient, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: tx %s after %s", errReceiptTimeout, txHash.Hex(), s.cfg.ReceiptTimeout)
		case <-ticker.C:
		}
	}
}
