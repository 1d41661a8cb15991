package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/block"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
)

const (
	DEFAULT_PAGE_SIZE     = 2000
	DEFAULT_QUERY_TIMEOUT = time.Minute
	DEFAULT_POLL_INTERVAL = 12 * time.Second
)

// Config holds the configuration for the Ethereum mint source
type Config struct {
	ChainID         domain.Chain // e.g. "eip155:1" for Ethereum mainnet
	ContractAddress string
	// PageSize is the initial block span of a single eth_getLogs call
	PageSize uint64
	// QueryTimeout bounds a whole range query including its pages
	QueryTimeout time.Duration
	// PollInterval is used when the endpoint cannot push notifications
	PollInterval time.Duration
}

type mintSource struct {
	client   adapter.EthClient
	head     block.BlockHeadProvider
	clock    adapter.Clock
	contract common.Address
	cfg      Config
}

// NewMintSource creates a mint source reading NFTMinted logs of a single contract
func NewMintSource(client adapter.EthClient, head block.BlockHeadProvider, clock adapter.Clock, cfg Config) messaging.MintSource {
	if cfg.PageSize == 0 {
		cfg.PageSize = DEFAULT_PAGE_SIZE
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DEFAULT_QUERY_TIMEOUT
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DEFAULT_POLL_INTERVAL
	}

	return &mintSource{
		client:   client,
		head:     head,
		clock:    clock,
		contract: common.HexToAddress(cfg.ContractAddress),
		cfg:      cfg,
	}
}

func (s *mintSource) filterQuery() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{{nftMintedEventSignature}},
	}
}

// QueryMintEvents returns the mint events emitted in [fromBlock, toBlock], ordered by block and log index
func (s *mintSource) QueryMintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]domain.RawEvent, error) {
	logs, err := s.queryLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	events := make([]domain.RawEvent, 0, len(logs))
	for _, vLog := range logs {
		events = append(events, toHistorical(vLog))
	}
	return events, nil
}

func (s *mintSource) queryLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	query := s.filterQuery()
	query.FromBlock = new(big.Int).SetUint64(fromBlock)
	query.ToBlock = new(big.Int).SetUint64(toBlock)

	logs, err := s.getLogsWithRetry(timeoutCtx, query, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", fromBlock, toBlock, err)
	}

	kept := logs[:0]
	for _, vLog := range logs {
		// Logs of reorged-out blocks are never applied
		if vLog.Removed {
			continue
		}
		kept = append(kept, vLog)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].BlockNumber != kept[j].BlockNumber {
			return kept[i].BlockNumber < kept[j].BlockNumber
		}
		return kept[i].Index < kept[j].Index
	})

	return kept, nil
}

// getLogsWithRetry walks [query.FromBlock, query.ToBlock] in pages of stepSize blocks,
// halving the page whenever the node refuses a response as too large
func (s *mintSource) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := stepSize

	var allLogs []types.Log
	currentFrom := query.FromBlock.Uint64()
	to := query.ToBlock.Uint64()

	for currentFrom <= to {
		currentTo := currentFrom + currentStepSize - 1
		if currentTo > to || currentTo < currentFrom {
			currentTo = to
		}

		queryCopy := query
		queryCopy.FromBlock = new(big.Int).SetUint64(currentFrom)
		queryCopy.ToBlock = new(big.Int).SetUint64(currentTo)

		logs, err := s.client.FilterLogs(ctx, queryCopy)
		if err == nil {
			allLogs = append(allLogs, logs...)
			if currentTo == to {
				break
			}
			currentFrom = currentTo + 1
			continue
		}

		if !isTooManyResultsError(err) || currentStepSize == 1 {
			return nil, err
		}

		currentStepSize = currentStepSize / 2

		logger.Warn("Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", currentFrom),
			zap.Uint64("toBlock", currentTo))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// GetCurrentBlock returns the latest block number
func (s *mintSource) GetCurrentBlock(ctx context.Context) (uint64, error) {
	return s.head.GetLatestBlock(ctx)
}

// Close closes the connection
func (s *mintSource) Close() {
	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum connection closed", zap.String("chain", string(s.cfg.ChainID)))
}
