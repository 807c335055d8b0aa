package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	rpcjson "github.com/gorilla/rpc/v2/json2"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/arbiter-labs/hyperarb/types"
)

// JSONRPC is the reference ChainGateway implementation: HTTP JSON-RPC 2.0
// for request/response calls, a websocket "eth_subscribe" stream for
// pushed blocks and pending transactions.
type JSONRPC struct {
	httpURL string
	wsURL   string

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger

	wsMu   sync.Mutex
	wsConn *websocket.Conn
}

// Option configures a JSONRPC client.
type Option func(*JSONRPC)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(j *JSONRPC) { j.httpClient = c }
}

// WithRateLimit caps outbound call rate; burst defaults to rps if <= 0.
func WithRateLimit(rps float64, burst int) Option {
	return func(j *JSONRPC) {
		if burst <= 0 {
			burst = int(rps)
			if burst < 1 {
				burst = 1
			}
		}
		j.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger attaches a logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(j *JSONRPC) { j.log = l }
}

// NewJSONRPC builds a client against an HTTP endpoint (request/response
// calls) and an optional websocket endpoint (push subscriptions). wsURL
// may be empty, in which case WatchBlocks/WatchPendingTransactions return
// an error and callers must poll via GetBlockNumber/GetLogs instead.
func NewJSONRPC(httpURL, wsURL string, opts ...Option) *JSONRPC {
	j := &JSONRPC{
		httpURL:    httpURL,
		wsURL:      wsURL,
		httpClient: http.DefaultClient,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

var _ ChainGateway = (*JSONRPC)(nil)

// call issues a single JSON-RPC 2.0 request and decodes the result into
// reply.
func (j *JSONRPC) call(ctx context.Context, method string, params, reply any) error {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gateway: rate limit wait: %w", err)
		}
	}

	body, err := rpcjson.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("gateway: encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.httpURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: send %s request: %w", method, err)
	}
	defer cleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: %s returned status %d", method, resp.StatusCode)
	}
	if reply == nil {
		return nil
	}
	if err := rpcjson.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("gateway: decode %s response: %w", method, err)
	}
	return nil
}

// cleanlyCloseBody drains and closes an HTTP response body so the
// connection can be reused; an unread body otherwise risks an HTTP/2
// GOAWAY on the next request.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func (j *JSONRPC) ReadContract(ctx context.Context, addr types.Address, method string, args ...any) ([]byte, error) {
	callObj := map[string]any{
		"to":   addr.Hex(),
		"data": method,
	}
	var result string
	if err := j.call(ctx, "eth_call", []any{callObj, "latest"}, &result); err != nil {
		return nil, err
	}
	return decodeHexBytes(result)
}

func (j *JSONRPC) GetBlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := j.call(ctx, "eth_blockNumber", []any{}, &result); err != nil {
		return 0, err
	}
	return decodeHexUint64(result)
}

type rpcBlock struct {
	Number       string   `json:"number"`
	Hash         string   `json:"hash"`
	ParentHash   string   `json:"parentHash"`
	Timestamp    string   `json:"timestamp"`
	Transactions []string `json:"transactions"`
}

func (j *JSONRPC) GetBlock(ctx context.Context, numberOrTag string, includeTxs bool) (*Block, error) {
	tag := numberOrTag
	if tag != "latest" && tag != "pending" && tag != "earliest" {
		n, err := strconv.ParseUint(numberOrTag, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gateway: bad block number %q: %w", numberOrTag, err)
		}
		tag = encodeHexUint64(n)
	}

	var raw rpcBlock
	if err := j.call(ctx, "eth_getBlockByNumber", []any{tag, includeTxs}, &raw); err != nil {
		return nil, err
	}
	if raw.Hash == "" {
		return nil, nil
	}

	number, err := decodeHexUint64(raw.Number)
	if err != nil {
		return nil, err
	}
	ts, err := decodeHexUint64(raw.Timestamp)
	if err != nil {
		return nil, err
	}

	b := &Block{Number: number, Timestamp: ts}
	if err := decodeHash32(raw.Hash, &b.Hash); err != nil {
		return nil, err
	}
	if err := decodeHash32(raw.ParentHash, &b.ParentHash); err != nil {
		return nil, err
	}
	b.Transactions = make([][32]byte, 0, len(raw.Transactions))
	for _, h := range raw.Transactions {
		var hash [32]byte
		if err := decodeHash32(h, &hash); err != nil {
			continue
		}
		b.Transactions = append(b.Transactions, hash)
	}
	return b, nil
}

type rpcTx struct {
	Hash     string  `json:"hash"`
	From     string  `json:"from"`
	To       *string `json:"to"`
	Input    string  `json:"input"`
	GasPrice string  `json:"gasPrice"`
	Value    string  `json:"value"`
}

func (j *JSONRPC) GetTransaction(ctx context.Context, hash [32]byte) (*Tx, error) {
	var raw rpcTx
	if err := j.call(ctx, "eth_getTransactionByHash", []any{encodeHash32(hash)}, &raw); err != nil {
		return nil, err
	}
	if raw.Hash == "" {
		return nil, nil
	}

	tx := &Tx{}
	if err := decodeHash32(raw.Hash, &tx.Hash); err != nil {
		return nil, err
	}
	from, err := types.ParseAddress(raw.From)
	if err != nil {
		return nil, err
	}
	tx.From = from
	if raw.To != nil {
		to, err := types.ParseAddress(*raw.To)
		if err != nil {
			return nil, err
		}
		tx.To = &to
	}
	tx.Input, err = decodeHexBytes(raw.Input)
	if err != nil {
		return nil, err
	}
	gasPrice, err := decodeHexU256(raw.GasPrice)
	if err != nil {
		return nil, err
	}
	tx.GasPrice = gasPrice
	value, err := decodeHexU256(raw.Value)
	if err != nil {
		return nil, err
	}
	tx.Value = value
	return tx, nil
}

type rpcLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	TxHash      string   `json:"transactionHash"`
	LogIndex    string   `json:"logIndex"`
	BlockNumber string   `json:"blockNumber"`
	Removed     bool     `json:"removed"`
}

type rpcReceipt struct {
	TxHash  string    `json:"transactionHash"`
	Status  string    `json:"status"`
	GasUsed string    `json:"gasUsed"`
	Logs    []rpcLog  `json:"logs"`
}

func (j *JSONRPC) GetTransactionReceipt(ctx context.Context, hash [32]byte) (*Receipt, error) {
	var raw rpcReceipt
	if err := j.call(ctx, "eth_getTransactionReceipt", []any{encodeHash32(hash)}, &raw); err != nil {
		return nil, err
	}
	if raw.TxHash == "" {
		return nil, nil
	}
	r := &Receipt{}
	if err := decodeHash32(raw.TxHash, &r.TxHash); err != nil {
		return nil, err
	}
	status, err := decodeHexUint64(raw.Status)
	if err != nil {
		return nil, err
	}
	r.Status = status
	gasUsed, err := decodeHexUint64(raw.GasUsed)
	if err != nil {
		return nil, err
	}
	r.GasUsed = gasUsed
	for _, rl := range raw.Logs {
		l, err := rl.toLog()
		if err != nil {
			continue
		}
		r.Logs = append(r.Logs, l)
	}
	return r, nil
}

func (rl rpcLog) toLog() (Log, error) {
	var l Log
	addr, err := types.ParseAddress(rl.Address)
	if err != nil {
		return l, err
	}
	l.Address = addr
	for _, t := range rl.Topics {
		var topic [32]byte
		if err := decodeHash32(t, &topic); err != nil {
			return l, err
		}
		l.Topics = append(l.Topics, topic)
	}
	data, err := decodeHexBytes(rl.Data)
	if err != nil {
		return l, err
	}
	l.Data = data
	if err := decodeHash32(rl.TxHash, &l.TxHash); err != nil {
		return l, err
	}
	idx, err := decodeHexUint64(rl.LogIndex)
	if err != nil {
		return l, err
	}
	l.LogIndex = idx
	bn, err := decodeHexUint64(rl.BlockNumber)
	if err != nil {
		return l, err
	}
	l.BlockNumber = bn
	l.Removed = rl.Removed
	return l, nil
}

func (j *JSONRPC) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	params := map[string]any{
		"fromBlock": encodeHexUint64(filter.FromBlock),
		"toBlock":   encodeHexUint64(filter.ToBlock),
	}
	if len(filter.Address) > 0 {
		addrs := make([]string, len(filter.Address))
		for i, a := range filter.Address {
			addrs[i] = a.Hex()
		}
		params["address"] = addrs
	}
	if len(filter.Topics) > 0 {
		topics := make([]string, len(filter.Topics))
		for i, t := range filter.Topics {
			topics[i] = encodeHash32(t)
		}
		params["topics"] = topics
	}

	var raw []rpcLog
	if err := j.call(ctx, "eth_getLogs", []any{params}, &raw); err != nil {
		if isTooBigError(err) {
			return nil, &ResponseTooBig{Err: err}
		}
		return nil, err
	}
	out := make([]Log, 0, len(raw))
	for _, rl := range raw {
		l, err := rl.toLog()
		if err != nil {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// isTooBigError recognizes the handful of phrasings RPC providers use when a
// log-range request exceeds their response-size limit.
func isTooBigError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "query returned more than") ||
		strings.Contains(s, "response size exceeded") ||
		strings.Contains(s, "block range") && strings.Contains(s, "too") ||
		strings.Contains(s, "limit exceeded")
}

func (j *JSONRPC) GetGasPrice(ctx context.Context) (types.U256, error) {
	var result string
	if err := j.call(ctx, "eth_gasPrice", []any{}, &result); err != nil {
		return types.U256{}, err
	}
	return decodeHexU256(result)
}

type subscriptionNotification struct {
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// ensureWS lazily dials the websocket endpoint; callers hold wsMu.
func (j *JSONRPC) ensureWS(ctx context.Context) (*websocket.Conn, error) {
	if j.wsURL == "" {
		return nil, fmt.Errorf("gateway: no websocket endpoint configured")
	}
	if j.wsConn != nil {
		return j.wsConn, nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, j.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: dial websocket: %w", err)
	}
	j.wsConn = conn
	return conn, nil
}

func (j *JSONRPC) subscribe(ctx context.Context, subType string, handle func(json.RawMessage)) (UnsubscribeFunc, error) {
	j.wsMu.Lock()
	conn, err := j.ensureWS(ctx)
	if err != nil {
		j.wsMu.Unlock()
		return nil, err
	}

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_subscribe",
		"params":  []any{subType},
	}
	if err := conn.WriteJSON(req); err != nil {
		j.wsMu.Unlock()
		return nil, fmt.Errorf("gateway: subscribe %s: %w", subType, err)
	}

	var ack struct {
		Result string `json:"result"`
	}
	if err := conn.ReadJSON(&ack); err != nil {
		j.wsMu.Unlock()
		return nil, fmt.Errorf("gateway: subscribe %s ack: %w", subType, err)
	}
	j.wsMu.Unlock()

	subID := ack.Result
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			var note subscriptionNotification
			if err := conn.ReadJSON(&note); err != nil {
				j.log.Warn("gateway: subscription read failed", "sub", subType, "err", err)
				return
			}
			if note.Params.Subscription != subID {
				continue
			}
			handle(note.Params.Result)
		}
	}()

	return func() {
		close(done)
		j.wsMu.Lock()
		_ = conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0", "id": 2, "method": "eth_unsubscribe", "params": []any{subID},
		})
		j.wsMu.Unlock()
	}, nil
}

func (j *JSONRPC) WatchBlocks(ctx context.Context, onBlock func(*Block)) (UnsubscribeFunc, error) {
	return j.subscribe(ctx, "newHeads", func(raw json.RawMessage) {
		var head rpcBlock
		if err := json.Unmarshal(raw, &head); err != nil {
			return
		}
		number, err := decodeHexUint64(head.Number)
		if err != nil {
			return
		}
		ts, err := decodeHexUint64(head.Timestamp)
		if err != nil {
			return
		}
		b := &Block{Number: number, Timestamp: ts}
		_ = decodeHash32(head.Hash, &b.Hash)
		_ = decodeHash32(head.ParentHash, &b.ParentHash)
		onBlock(b)
	})
}

func (j *JSONRPC) WatchPendingTransactions(ctx context.Context, onHashes func([][32]byte)) (UnsubscribeFunc, error) {
	return j.subscribe(ctx, "newPendingTransactions", func(raw json.RawMessage) {
		var hashHex string
		if err := json.Unmarshal(raw, &hashHex); err != nil {
			return
		}
		var hash [32]byte
		if err := decodeHash32(hashHex, &hash); err != nil {
			return
		}
		onHashes([][32]byte{hash})
	})
}

func (j *JSONRPC) SendTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	var result string
	if err := j.call(ctx, "eth_sendRawTransaction", []any{encodeHexBytes(raw)}, &result); err != nil {
		return [32]byte{}, err
	}
	var hash [32]byte
	if err := decodeHash32(result, &hash); err != nil {
		return [32]byte{}, err
	}
	return hash, nil
}

func (j *JSONRPC) WaitForReceipt(ctx context.Context, hash [32]byte) (*Receipt, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		r, err := j.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (j *JSONRPC) EstimateGas(ctx context.Context, from types.Address, to *types.Address, data []byte, value types.U256) (uint64, error) {
	callObj := map[string]any{
		"from":  from.Hex(),
		"data":  encodeHexBytes(data),
		"value": encodeHexU256(value),
	}
	if to != nil {
		callObj["to"] = to.Hex()
	}
	var result string
	if err := j.call(ctx, "eth_estimateGas", []any{callObj}, &result); err != nil {
		return 0, err
	}
	return decodeHexUint64(result)
}

// --- hex codec helpers -------------------------------------------------

func encodeHexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func decodeHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}

func decodeHexU256(s string) (types.U256, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		s = "0"
	}
	v, err := types.ParseU256Hex(s)
	if err != nil {
		return types.U256{}, err
	}
	return v, nil
}

func encodeHexU256(v types.U256) string {
	n, ok := new(big.Int).SetString(v.Int().Dec(), 10)
	if !ok {
		return "0x0"
	}
	return "0x" + strings.ToLower(n.Text(16))
}

func encodeHash32(h [32]byte) string {
	return "0x" + hexEncode(h[:])
}

func decodeHash32(s string, out *[32]byte) error {
	b, err := decodeHexBytes(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("gateway: expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return nil
}

func encodeHexBytes(b []byte) string {
	return "0x" + hexEncode(b)
}

func decodeHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hexDecode(s)
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("gateway: odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("gateway: bad hex digit %q", c)
	}
}
