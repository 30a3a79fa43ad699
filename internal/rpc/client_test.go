package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gro-garden-sync/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers JSON-RPC calls from a per-method handler
type fakeNode struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]func(n int) (status int, body string)
	counts   map[string]int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: make(map[string]func(int) (int, string)),
		counts:   make(map[string]int),
	}
}

func (f *fakeNode) on(method string, h func(n int) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeNode) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method]
}

func (f *fakeNode) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.counts[req.Method]++
	n := f.counts[req.Method]
	h := f.handlers[req.Method]
	f.mu.Unlock()

	if h == nil {
		http.Error(w, "no handler", http.StatusNotImplemented)
		return
	}
	status, body := h(n)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func result(v string) string {
	return `{"jsonrpc":"2.0","id":1,"result":` + v + `}`
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	policy := retry.DefaultPolicy("test")
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	c, err := NewClient(Config{Endpoint: srv.URL, Retry: policy})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestRequestShape(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(int) (int, string) { return 200, result(`{"context":{"slot":1},"value":5}`) })
	c := newTestClient(t, node)

	_, err := c.GetBalance(context.Background(), "Addr1")
	require.NoError(t, err)

	req := node.lastRequest()
	assert.Equal(t, "getBalance", req.Method)
	require.Len(t, req.Params, 1)
	assert.JSONEq(t, `"Addr1"`, string(req.Params[0]))
}

func TestGetBalanceFallsBackToCache(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(n int) (int, string) {
		if n == 1 {
			return 200, result(`{"context":{"slot":1},"value":100}`)
		}
		return http.StatusServiceUnavailable, "unavailable"
	})
	c := newTestClient(t, node)

	first, err := c.GetBalance(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), first)

	second, err := c.GetBalance(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), second)
	assert.Equal(t, 4, node.count("getBalance"), "one success plus three retried failures")
}

func TestGetBalanceWithoutCachePropagates(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(int) (int, string) { return http.StatusBadGateway, "" })
	c := newTestClient(t, node)

	_, err := c.GetBalance(context.Background(), "wallet")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestPermanentRPCErrorNotRetried(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(int) (int, string) {
		return 200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param: WrongSize"}}`
	})
	c := newTestClient(t, node)

	_, err := c.GetBalance(context.Background(), "short")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "getBalance", rpcErr.Method)
	assert.Equal(t, 1, node.count("getBalance"))
}

func TestTransientRPCErrorRetried(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(n int) (int, string) {
		if n < 3 {
			return 200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"Node is behind"}}`
		}
		return 200, result(`{"value":42}`)
	})
	c := newTestClient(t, node)

	got, err := c.GetBalance(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
	assert.Equal(t, 3, node.count("getBalance"))
}

func TestGetLatestBlockhash(t *testing.T) {
	node := newFakeNode()
	node.on("getLatestBlockhash", func(int) (int, string) {
		return 200, result(`{"context":{"slot":9},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}`)
	})
	c := newTestClient(t, node)

	hash, err := c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", hash)

	req := node.lastRequest()
	require.Len(t, req.Params, 1)
	assert.JSONEq(t, `{"commitment":"finalized"}`, string(req.Params[0]))
}

func TestGetLatestBlockhashMissingValue(t *testing.T) {
	node := newFakeNode()
	node.on("getLatestBlockhash", func(int) (int, string) { return 200, result(`{"context":{"slot":9}}`) })
	c := newTestClient(t, node)

	_, err := c.GetLatestBlockhash(context.Background())
	assert.ErrorIs(t, err, ErrMissingBlockhash)
	assert.Equal(t, 1, node.count("getLatestBlockhash"))
}

func TestGetTokenAccountsByOwner(t *testing.T) {
	node := newFakeNode()
	node.on("getTokenAccountsByOwner", func(int) (int, string) {
		return 200, result(`{"context":{"slot":1},"value":[
			{"pubkey":"Acc1","account":{"data":{"parsed":{"info":{"mint":"MintA","tokenAmount":{"amount":"1500","decimals":6}}}}}},
			{"pubkey":"Acc2","account":{"data":{"parsed":{"info":{"mint":"MintB","tokenAmount":{"amount":"0","decimals":6}}}}}},
			{"pubkey":"Acc3","account":{"data":["base64data","base64"]}},
			{"pubkey":"Acc4","account":{"data":{"parsed":{"info":{"mint":"MintD","tokenAmount":{"amount":"abc","decimals":2}}}}}},
			{"pubkey":"Acc5","account":{"data":{"parsed":{"info":{"mint":"MintE","tokenAmount":{"amount":"7","decimals":0}}}}}}
		]}`)
	})
	c := newTestClient(t, node)

	accounts, err := c.GetTokenAccountsByOwner(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "MintA", accounts[0].Mint)
	assert.Equal(t, uint64(1500), accounts[0].Amount)
	assert.Equal(t, 6, accounts[0].Decimals)
	assert.Equal(t, "MintE", accounts[1].Mint)

	req := node.lastRequest()
	require.Len(t, req.Params, 3)
	assert.JSONEq(t, `{"programId":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"}`, string(req.Params[1]))
	assert.JSONEq(t, `{"encoding":"jsonParsed"}`, string(req.Params[2]))
}

func TestGetTokenAccountsMalformedValue(t *testing.T) {
	node := newFakeNode()
	node.on("getTokenAccountsByOwner", func(int) (int, string) { return 200, result(`{"value":{}}`) })
	c := newTestClient(t, node)

	_, err := c.GetTokenAccountsByOwner(context.Background(), "owner")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetSignaturesExcludesFailed(t *testing.T) {
	node := newFakeNode()
	node.on("getSignaturesForAddress", func(int) (int, string) {
		return 200, result(`[
			{"signature":"sig1","slot":10,"blockTime":1700000000,"memo":"[22] gro:deposit:v1:SOL:5","err":null},
			{"signature":"sig2","slot":11,"blockTime":1700000100,"memo":null,"err":{"InstructionError":[0,"Custom"]}},
			{"signature":"sig3","slot":12,"blockTime":null,"memo":null,"err":null},
			"garbage"
		]`)
	})
	c := newTestClient(t, node)

	sigs, err := c.GetSignaturesForAddress(context.Background(), "wallet", 30)
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	assert.Equal(t, "sig1", sigs[0].Signature)
	require.NotNil(t, sigs[0].BlockTime)
	assert.Equal(t, int64(1700000000), sigs[0].BlockTime.Unix())
	require.NotNil(t, sigs[0].Memo)
	assert.Equal(t, "[22] gro:deposit:v1:SOL:5", *sigs[0].Memo)

	assert.Equal(t, "sig3", sigs[1].Signature)
	assert.Nil(t, sigs[1].BlockTime)

	req := node.lastRequest()
	assert.JSONEq(t, `{"limit":30}`, string(req.Params[1]))
}

func TestGetSignaturesUntilCursor(t *testing.T) {
	node := newFakeNode()
	node.on("getSignaturesForAddress", func(int) (int, string) { return 200, result(`[]`) })
	c := newTestClient(t, node)

	_, err := c.GetSignatures(context.Background(), "wallet", SignatureQuery{Until: "sigX"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":20,"until":"sigX"}`, string(node.lastRequest().Params[1]))
}

func TestGetSignaturesBeforeIncludesFailed(t *testing.T) {
	node := newFakeNode()
	node.on("getSignaturesForAddress", func(int) (int, string) {
		return 200, result(`[
			{"signature":"sig4","slot":14,"blockTime":null,"memo":null,"err":{"InstructionError":[0,"Custom"]}},
			{"signature":"sig3","slot":13,"blockTime":null,"memo":null,"err":null}
		]`)
	})
	c := newTestClient(t, node)

	sigs, err := c.GetSignatures(context.Background(), "wallet", SignatureQuery{Limit: 2, Until: "sig1", Before: "sig5", IncludeFailed: true})
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.True(t, sigs[0].Failed)
	assert.False(t, sigs[1].Failed)
	assert.JSONEq(t, `{"limit":2,"until":"sig1","before":"sig5"}`, string(node.lastRequest().Params[1]))
}

const parsedTransaction = `{
	"slot": 5,
	"meta": {"err": null, "innerInstructions": [
		{"index": 0, "instructions": [
			{"program":"spl-memo","programId":"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr","parsed":"inner memo","stackHeight":2}
		]}
	]},
	"transaction": {"message": {"instructions": [
		{"program":"system","programId":"11111111111111111111111111111111","parsed":{"type":"transfer","info":{"lamports":5}}},
		{"program":"spl-memo","programId":"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr","parsed":"gro:deposit:v1:SOL:50000000","stackHeight":null}
	]}, "signatures": ["sig1"]}
}`

func TestGetTransactionCachesPayload(t *testing.T) {
	node := newFakeNode()
	node.on("getTransaction", func(int) (int, string) { return 200, result(parsedTransaction) })
	c := newTestClient(t, node)

	memos, err := c.TransactionMemos(context.Background(), "sig1")
	require.NoError(t, err)
	assert.Equal(t, []string{"gro:deposit:v1:SOL:50000000", "inner memo"}, memos)

	_, err = c.GetTransaction(context.Background(), "sig1")
	require.NoError(t, err)
	assert.Equal(t, 1, node.count("getTransaction"))

	req := node.lastRequest()
	assert.JSONEq(t, `{"encoding":"jsonParsed","maxSupportedTransactionVersion":0}`, string(req.Params[1]))
}

func TestGetTransactionNotFound(t *testing.T) {
	node := newFakeNode()
	node.on("getTransaction", func(int) (int, string) { return 200, result(`null`) })
	c := newTestClient(t, node)

	_, err := c.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestConcurrentBalanceCalls(t *testing.T) {
	node := newFakeNode()
	node.on("getBalance", func(int) (int, string) { return 200, result(`{"value":1}`) })
	c := newTestClient(t, node)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetBalance(context.Background(), "wallet")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, node.count("getBalance"))
}
