// Package gateway defines ChainGateway, the read-only RPC surface the
// pipeline consumes. The production transaction-signing/broadcast path
// and ABI-level calldata decoding stay external collaborators; this
// package only ships a thin reference JSON-RPC/WS implementation
// (gateway/jsonrpc.go) plus an in-memory test double (gateway/mock.go)
// good enough to drive the pipeline end to end without a live chain.
package gateway

import (
	"context"

	"github.com/arbiter-labs/hyperarb/types"
)

// Block is the minimal subset of block data the pipeline reads.
type Block struct {
	Number       uint64
	Hash         [32]byte
	ParentHash   [32]byte
	Timestamp    uint64
	Transactions [][32]byte // tx hashes; full bodies only when IncludeTxs is requested
}

// Tx is the minimal subset of transaction data the pipeline reads.
type Tx struct {
	Hash     [32]byte
	From     types.Address
	To       *types.Address
	Input    []byte
	GasPrice types.U256
	Value    types.U256
}

// Receipt is the minimal subset of receipt data the pipeline reads.
type Receipt struct {
	TxHash  [32]byte
	Status  uint64
	GasUsed uint64
	Logs    []Log
}

// Log is a decoded EVM log entry.
type Log struct {
	Address types.Address
	Topics  [][32]byte
	Data    []byte
	TxHash  [32]byte
	LogIndex uint64
	BlockNumber uint64
	Removed  bool
}

// LogFilter selects which logs GetLogs should return.
type LogFilter struct {
	Address   []types.Address
	Topics    [][32]byte
	FromBlock uint64
	ToBlock   uint64
}

// ResponseTooBig is returned by GetLogs implementations (real or mock) when
// the requested range is too large for the upstream provider to answer in
// one call, triggering EventCollector's halve-and-retry rule.
type ResponseTooBig struct{ Err error }

func (e *ResponseTooBig) Error() string { return "gateway: response is too big: " + e.Err.Error() }
func (e *ResponseTooBig) Unwrap() error { return e.Err }

// UnsubscribeFunc cancels a push subscription.
type UnsubscribeFunc func()

// ChainGateway is the read-only external collaborator the pipeline depends
// on. Implementations: gateway.JSONRPC (reference HTTP/WS client)
// and gateway.Mock (in-memory test double).
type ChainGateway interface {
	ReadContract(ctx context.Context, addr types.Address, method string, args ...any) ([]byte, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, numberOrTag string, includeTxs bool) (*Block, error)
	GetTransaction(ctx context.Context, hash [32]byte) (*Tx, error)
	GetTransactionReceipt(ctx context.Context, hash [32]byte) (*Receipt, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]Log, error)
	GetGasPrice(ctx context.Context) (types.U256, error)

	// WatchBlocks/WatchPendingTransactions deliver push notifications where
	// supported. When WatchBlocks is unavailable EventCollector polls
	// GetBlockNumber/GetBlock instead; pending transactions have no
	// fallback.
	WatchBlocks(ctx context.Context, onBlock func(*Block)) (UnsubscribeFunc, error)
	WatchPendingTransactions(ctx context.Context, onHashes func([][32]byte)) (UnsubscribeFunc, error)

	// SendTransaction/WaitForReceipt/EstimateGas are executor-only; no
	// other package in this module calls them.
	SendTransaction(ctx context.Context, raw []byte) ([32]byte, error)
	WaitForReceipt(ctx context.Context, hash [32]byte) (*Receipt, error)
	EstimateGas(ctx context.Context, from types.Address, to *types.Address, data []byte, value types.U256) (uint64, error)
}
