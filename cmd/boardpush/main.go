// boardpush 把留言板源文件的更新持续发布到链上存储合约。
// Watches board source files and publishes each new timestamp to the
// storage contract, one worker per board.
package main

import (
	"context"
	"errors"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/announce"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/config"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/contract"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/feearchive"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/feeledger"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/gasprice"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/submit"
	"github.com/chenzhangda16/web3-boardpush/internal/boardpush/watch"
	"github.com/chenzhangda16/web3-boardpush/pkg/obs"
)

func main() {
	var (
		cfgPath = flag.String("config", "boardpush.yaml", "config file path; env vars override its values")
		only    = flag.Int("board", 0, "run a single board id; 0 runs all configured boards")
	)
	flag.Parse()

	logger := obs.NewLogger("boardpush")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Config load failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	binding, err := contract.NewBoardStorageBinding(cfg.Chain.ContractAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("Bad contract address")
	}

	storageKey := common.HexToHash(contract.DefaultStorageKey)
	if cfg.Chain.StorageKey != "" {
		storageKey, err = contract.ParseStorageKey(cfg.Chain.StorageKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Bad storage key")
		}
	}

	ledger := feeledger.New(cfg.Fees.LedgerFile, logger)

	// Event sinks: Kafka and the Postgres fee archive, both optional.
	var sinks []announce.Sink
	if len(cfg.Announce.Brokers) > 0 {
		ks, err := announce.NewKafkaSink(cfg.Announce.Brokers, cfg.Announce.Topic, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("Kafka sink init failed")
		}
		sinks = append(sinks, ks)
	}
	if cfg.Fees.ArchiveDSN != "" {
		arch, err := feearchive.New(cfg.Fees.ArchiveDSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Fee archive init failed")
		}
		if err := arch.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Fee archive schema init failed")
		}
		sinks = append(sinks, arch)
	}
	var sink announce.Sink = announce.NopSink{}
	if len(sinks) > 0 {
		sink = announce.NewMultiSink(sinks...)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn().Err(err).Msg("Sink close failed")
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return obs.ServeHealth(ctx, cfg.Service.HealthAddr, logger)
	})

	started := 0
	for _, bc := range cfg.Boards {
		if *only != 0 && bc.ID != *only {
			continue
		}

		keyEnv := config.PrivateKeyEnv(bc.ID)
		signer, err := submit.NewLocalECDSASigner(os.Getenv(keyEnv))
		if err != nil {
			logger.Fatal().Err(err).Int("board_id", bc.ID).Str("env", keyEnv).Msg("Signing key missing or invalid")
		}

		// Gas escalation state is owned per worker; the submitter climbs
		// it on timeouts, the watcher exports it as a gauge.
		gas := gasprice.New(cfg.GasPolicy())

		sub, err := submit.New(submit.Config{
			Endpoints:      cfg.Chain.RPCURLs,
			TokenID:        big.NewInt(bc.TokenID),
			StorageKey:     storageKey,
			ChainID:        cfg.Chain.ChainID,
			GasLimit:       cfg.Chain.GasLimit,
			ReceiptTimeout: cfg.ReceiptTimeout(),
		}, binding, signer, gas, ledger, logger)
		if err != nil {
			logger.Fatal().Err(err).Int("board_id", bc.ID).Msg("Submitter init failed")
		}

		w, err := watch.New(watch.Config{
			BoardID:        bc.ID,
			TokenID:        bc.TokenID,
			BoardPath:      bc.BoardFile,
			TemplatePath:   cfg.Service.TemplateFile,
			CheckpointPath: bc.CheckpointFile,
			PollInterval:   cfg.PollInterval(),
		}, sub, gas, sink, logger)
		if err != nil {
			logger.Fatal().Err(err).Int("board_id", bc.ID).Msg("Watcher init failed")
		}

		logger.Info().
			Int("board_id", bc.ID).
			Int64("token_id", bc.TokenID).
			Str("signer", signer.From().Hex()).
			Msg("Board worker starting")
		g.Go(func() error { return w.Run(ctx) })
		started++
	}
	if started == 0 {
		logger.Fatal().Int("board", *only).Msg("No matching board to run")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("Worker failed")
	}
	logger.Info().Msg("Shutdown complete")
}
