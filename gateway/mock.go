package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/arbiter-labs/hyperarb/types"
)

var errTooBig = errors.New("mock: block range too large")

// Mock is an in-memory ChainGateway double: callers feed it blocks, logs,
// and a gas price and it replays them to subscribers and GetLogs callers.
// Exported as a first-class test double rather than a package-private
// fixture, since the pipeline's own tests need it too.
type Mock struct {
	mu sync.Mutex

	blocks   []*Block
	byNumber map[uint64]*Block
	txs      map[[32]byte]*Tx
	receipts map[[32]byte]*Receipt
	logs     []Log
	gasPrice types.U256

	blockWatchers  map[int]func(*Block)
	pendingWatchers map[int]func([][32]byte)
	nextWatcher    int

	// ForceTooBigThreshold, if non-zero, makes every GetLogs call whose range spans
	// more than this many blocks fail with ResponseTooBig, exercising
	// EventCollector's halve-and-retry rule.
	ForceTooBigThreshold uint64
}

// NewMock returns an empty Mock gateway.
func NewMock() *Mock {
	return &Mock{
		byNumber:        make(map[uint64]*Block),
		txs:             make(map[[32]byte]*Tx),
		receipts:        make(map[[32]byte]*Receipt),
		blockWatchers:   make(map[int]func(*Block)),
		pendingWatchers: make(map[int]func([][32]byte)),
		gasPrice:        types.NewU256FromUint64(1),
	}
}

// PushBlock appends a new block and notifies block watchers.
func (m *Mock) PushBlock(b *Block) {
	m.mu.Lock()
	m.blocks = append(m.blocks, b)
	m.byNumber[b.Number] = b
	watchers := make([]func(*Block), 0, len(m.blockWatchers))
	for _, w := range m.blockWatchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()
	for _, w := range watchers {
		w(b)
	}
}

// PushPendingHashes notifies pending-tx watchers of new hashes.
func (m *Mock) PushPendingHashes(hashes [][32]byte) {
	m.mu.Lock()
	watchers := make([]func([][32]byte), 0, len(m.pendingWatchers))
	for _, w := range m.pendingWatchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()
	for _, w := range watchers {
		w(hashes)
	}
}

// SetTx registers a transaction lookup result.
func (m *Mock) SetTx(tx *Tx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.Hash] = tx
}

// SetReceipt registers a receipt lookup result.
func (m *Mock) SetReceipt(r *Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[r.TxHash] = r
}

// AddLogs appends logs available to GetLogs.
func (m *Mock) AddLogs(logs ...Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, logs...)
}

// SetGasPrice sets the value GetGasPrice returns.
func (m *Mock) SetGasPrice(v types.U256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gasPrice = v
}

func (m *Mock) ReadContract(ctx context.Context, addr types.Address, method string, args ...any) ([]byte, error) {
	return nil, nil
}

func (m *Mock) GetBlockNumber(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.blocks) == 0 {
		return 0, nil
	}
	return m.blocks[len(m.blocks)-1].Number, nil
}

func (m *Mock) GetBlock(ctx context.Context, numberOrTag string, includeTxs bool) (*Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if numberOrTag == "latest" {
		if len(m.blocks) == 0 {
			return nil, nil
		}
		return m.blocks[len(m.blocks)-1], nil
	}
	return m.byNumber[parseUint(numberOrTag)], nil
}

func (m *Mock) GetTransaction(ctx context.Context, hash [32]byte) (*Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs[hash], nil
}

func (m *Mock) GetTransactionReceipt(ctx context.Context, hash [32]byte) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipts[hash], nil
}

func (m *Mock) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceTooBigThreshold > 0 && filter.ToBlock-filter.FromBlock > m.ForceTooBigThreshold {
		return nil, &ResponseTooBig{Err: errTooBig}
	}

	out := make([]Log, 0)
	for _, l := range m.logs {
		if l.BlockNumber < filter.FromBlock || l.BlockNumber > filter.ToBlock {
			continue
		}
		if len(filter.Address) > 0 && !containsAddr(filter.Address, l.Address) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *Mock) GetGasPrice(ctx context.Context) (types.U256, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gasPrice, nil
}

func (m *Mock) WatchBlocks(ctx context.Context, onBlock func(*Block)) (UnsubscribeFunc, error) {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.blockWatchers[id] = onBlock
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.blockWatchers, id)
		m.mu.Unlock()
	}, nil
}

func (m *Mock) WatchPendingTransactions(ctx context.Context, onHashes func([][32]byte)) (UnsubscribeFunc, error) {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.pendingWatchers[id] = onHashes
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.pendingWatchers, id)
		m.mu.Unlock()
	}, nil
}

func (m *Mock) SendTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	return [32]byte{}, nil
}

func (m *Mock) WaitForReceipt(ctx context.Context, hash [32]byte) (*Receipt, error) {
	return m.GetTransactionReceipt(ctx, hash)
}

func (m *Mock) EstimateGas(ctx context.Context, from types.Address, to *types.Address, data []byte, value types.U256) (uint64, error) {
	return 21000, nil
}

var _ ChainGateway = (*Mock)(nil)

func containsAddr(haystack []types.Address, needle types.Address) bool {
	for _, a := range haystack {
		if a == needle {
			return true
		}
	}
	return false
}

func parseUint(s string) uint64 {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
