package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/server/sources"
)

// Kind is the registry key for this adapter.
const Kind = "chainlink"

const metadataTimeout = 10 * time.Second

// AggregatorV3 ABI (read-only subset).
const aggregatorABIJSON = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"description","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"version","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint80","name":"_roundId","type":"uint80"}],"name":"getRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}
]`

var aggregatorABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic(fmt.Sprintf("chainlink: parse aggregator ABI: %v", err))
	}
	return parsed
}

// Feed reads one AggregatorV3 contract.
type Feed struct {
	name    string
	address common.Address
	caller  ethereum.ContractCaller
	client  *ethclient.Client // set when the feed owns its connection
	logger  *logging.Logger

	mu          sync.RWMutex
	decimals    uint8
	description string
	version     uint64
}

var _ sources.Adapter = (*Feed)(nil)

// roundData mirrors the tuple returned by latestRoundData/getRoundData.
type roundData struct {
	RoundId         *big.Int //nolint:revive // must match ABI output name
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// New creates a feed reading through caller. Metadata must be loaded with
// LoadMetadata before Decimals/Description are meaningful.
func New(name string, caller ethereum.ContractCaller, address common.Address, logger *logging.Logger) *Feed {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Feed{
		name:    name,
		address: address,
		caller:  caller,
		logger:  logger,
	}
}

// NewFromConfig dials rpc_url and loads metadata from the contract at address.
// A configured decimals value skips the on-chain decimals() lookup.
func NewFromConfig(name string, config map[string]interface{}) (sources.Adapter, error) {
	rpcURL := sources.GetString(config, "rpc_url", "")
	if rpcURL == "" {
		return nil, fmt.Errorf("%w", ErrRPCURLRequired)
	}
	addr := sources.GetString(config, "address", "")
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrAddressRequired, addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	feed := New(name, client, common.HexToAddress(addr), sources.GetLoggerFromConfig(config))
	feed.client = client

	if _, ok := config["decimals"]; ok {
		d, err := sources.GetDecimals(config, "decimals", 0)
		if err != nil {
			client.Close()
			return nil, err
		}
		feed.decimals = d
		feed.description = sources.GetString(config, "description", name)
		return feed, nil
	}

	if err := feed.LoadMetadata(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return feed, nil
}

// LoadMetadata fetches decimals, description and version from the contract.
func (f *Feed) LoadMetadata(ctx context.Context) error {
	var decimals uint8
	if err := f.call(ctx, &decimals, "decimals"); err != nil {
		return err
	}
	var description string
	if err := f.call(ctx, &description, "description"); err != nil {
		return err
	}
	version := new(big.Int)
	if err := f.call(ctx, &version, "version"); err != nil {
		// version() is informational; older proxies do not expose it
		f.logger.Debug("Feed version unavailable", "feed", f.name, "error", err)
		version = big.NewInt(0)
	}

	f.mu.Lock()
	f.decimals = decimals
	f.description = description
	f.version = version.Uint64()
	f.mu.Unlock()

	f.logger.Info("Loaded feed metadata",
		"feed", f.name,
		"address", f.address.Hex(),
		"decimals", decimals,
		"description", description)
	return nil
}

// LatestRound calls latestRoundData().
func (f *Feed) LatestRound(ctx context.Context) (sources.Round, error) {
	return f.round(ctx, "latestRoundData")
}

// RoundAt calls getRoundData(roundID).
func (f *Feed) RoundAt(ctx context.Context, roundID uint64) (sources.Round, error) {
	return f.round(ctx, "getRoundData", new(big.Int).SetUint64(roundID))
}

// Description returns the on-chain description.
func (f *Feed) Description() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.description
}

// Decimals returns the answer decimals.
func (f *Feed) Decimals() uint8 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decimals
}

// Version returns the aggregator version.
func (f *Feed) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// Close releases the RPC connection if the feed owns one.
func (f *Feed) Close() error {
	if f.client != nil {
		f.client.Close()
	}
	return nil
}

func (f *Feed) round(ctx context.Context, method string, args ...interface{}) (sources.Round, error) {
	data, err := f.invoke(ctx, method, args...)
	if err != nil {
		return sources.Round{}, err
	}

	var rd roundData
	if err := aggregatorABI.UnpackIntoInterface(&rd, method, data); err != nil {
		return sources.Round{}, fmt.Errorf("%w: unpack %s: %v", sources.ErrInvalidResponse, method, err)
	}
	if rd.UpdatedAt == nil || rd.UpdatedAt.Sign() == 0 {
		return sources.Round{}, fmt.Errorf("%w: %s round %v", ErrIncompleteRound, f.name, rd.RoundId)
	}
	if !rd.UpdatedAt.IsInt64() || !rd.RoundId.IsUint64() {
		return sources.Round{}, fmt.Errorf("%w: %s values out of range", sources.ErrInvalidResponse, method)
	}

	return sources.Round{
		RoundID:   rd.RoundId.Uint64(),
		Answer:    rd.Answer,
		UpdatedAt: time.Unix(rd.UpdatedAt.Int64(), 0),
		Decimals:  f.Decimals(),
	}, nil
}

func (f *Feed) call(ctx context.Context, out interface{}, method string) error {
	data, err := f.invoke(ctx, method)
	if err != nil {
		return err
	}
	if err := aggregatorABI.UnpackIntoInterface(out, method, data); err != nil {
		return fmt.Errorf("%w: unpack %s: %v", sources.ErrInvalidResponse, method, err)
	}
	return nil
}

func (f *Feed) invoke(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := aggregatorABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := f.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &f.address,
		Data: data,
	}, nil) // nil = latest block
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return result, nil
}

func init() {
	sources.Register(Kind, NewFromConfig)
}
