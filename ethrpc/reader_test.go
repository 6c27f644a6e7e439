package ethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-txsign/models"
)

const testTxHash = "0x0102030405060708091011121314151617181920212223242526272829303132"

type fakeNode struct {
	calls   map[string]*int64
	results map[string]interface{}
	fail    *jsonError
}

func newFakeNode(results map[string]interface{}) *fakeNode {
	f := &fakeNode{calls: make(map[string]*int64), results: results}
	for m := range results {
		f.calls[m] = new(int64)
	}
	return f
}

func (f *fakeNode) count(method string) int64 {
	if c, ok := f.calls[method]; ok {
		return atomic.LoadInt64(c)
	}
	return 0
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req jsonrpcMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := jsonrpcMessage{Version: vsn, ID: req.ID}
	if c, ok := f.calls[req.Method]; ok {
		atomic.AddInt64(c, 1)
	}
	res, ok := f.results[req.Method]
	switch {
	case f.fail != nil:
		resp.Error = f.fail
	case !ok:
		resp.Error = &jsonError{Code: -32601, Message: "the method " + req.Method + " does not exist"}
	default:
		resp.Result, _ = json.Marshal(res)
	}
	w.Header().Set("content-type", contentType)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestCallContext(t *testing.T) {
	srv := httptest.NewServer(newFakeNode(map[string]interface{}{"klay_chainID": "0x3e9"}))
	defer srv.Close()

	c, err := DialContext(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	var res string
	if err := c.CallContext(context.Background(), &res, "klay_chainID"); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if res != "0x3e9" {
		t.Fatalf("result %s, want 0x3e9", res)
	}

	if err := c.CallContext(context.Background(), res, "klay_chainID"); err == nil {
		t.Error("non pointer result should fail")
	}

	err = c.CallContext(context.Background(), &res, "klay_unknown")
	var je *jsonError
	if !errors.As(err, &je) {
		t.Fatalf("want json error, got %v", err)
	}
	if je.ErrorCode() != -32601 {
		t.Errorf("error code %d, want -32601", je.ErrorCode())
	}

	if _, err := DialContext(context.Background(), "ws://127.0.0.1:1"); err == nil {
		t.Error("websocket endpoint should be rejected")
	}
}

func TestNodeReader(t *testing.T) {
	node := newFakeNode(map[string]interface{}{
		"eth_chainID":             "0x1",
		"eth_getTransactionCount": "0x10",
		"eth_gasPrice":            "0x5d21dba00",
		"eth_sendRawTransaction":  testTxHash,
	})
	srv := httptest.NewServer(node)
	defer srv.Close()

	n := NewNodeReader("local", srv.URL, "eth", time.Second)
	ctx := context.Background()

	nonce, err := n.PendingNonce(ctx, common.Address{1})
	if err != nil || nonce.Uint64() != 16 {
		t.Fatalf("pending nonce %s %v, want 0x10", nonce, err)
	}

	for i := 0; i < 3; i++ {
		cid, err := n.ChainID(ctx)
		if err != nil || cid != models.MustQuantity("0x1") {
			t.Fatalf("chain id %s %v, want 0x1", cid, err)
		}
	}
	if c := node.count("eth_chainID"); c != 1 {
		t.Errorf("chain id requested %d times, should be cached", c)
	}

	gp, err := n.GasPrice(ctx)
	if err != nil || gp.Uint64() != 25000000000 {
		t.Fatalf("gas price %s %v", gp, err)
	}

	h, err := n.SendRawTransaction(ctx, "0x01")
	if err != nil || h.Hex() != testTxHash {
		t.Fatalf("send returned %s %v", h.Hex(), err)
	}
}

func TestReaderFirstSuccess(t *testing.T) {
	bad := newFakeNode(map[string]interface{}{"klay_getTransactionCount": "0x1"})
	bad.fail = &jsonError{Code: -32000, Message: "node is syncing"}
	good := newFakeNode(map[string]interface{}{"klay_getTransactionCount": "0x2"})
	badSrv, goodSrv := httptest.NewServer(bad), httptest.NewServer(good)
	defer badSrv.Close()
	defer goodSrv.Close()

	r, err := NewReader(map[string]string{"bad": badSrv.URL, "good": goodSrv.URL}, "", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Nodes()) != 2 {
		t.Fatalf("%d nodes, want 2", len(r.Nodes()))
	}

	nonce, err := r.PendingNonce(context.Background(), common.Address{2})
	if err != nil || nonce.Uint64() != 2 {
		t.Fatalf("pending nonce %s %v, want 0x2", nonce, err)
	}
}

func TestReaderAllFail(t *testing.T) {
	a := newFakeNode(nil)
	a.fail = &jsonError{Code: -32000, Message: "down"}
	srvA := httptest.NewServer(a)
	defer srvA.Close()

	r, err := NewReader(map[string]string{"a": srvA.URL, "b": "http://127.0.0.1:1"}, "", 500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.ChainID(context.Background())
	var ne NodeErrors
	if !errors.As(err, &ne) {
		t.Fatalf("want node errors, got %v", err)
	}
	if len(ne) != 2 {
		t.Errorf("%d node errors, want 2", len(ne))
	}
	if !strings.Contains(err.Error(), "couldn't read from any nodes") {
		t.Errorf("unexpected message %q", err.Error())
	}

	if _, err := NewReader(nil, "", 0); err != ErrNoNodes {
		t.Errorf("want %v, got %v", ErrNoNodes, err)
	}
}

func TestBroadcast(t *testing.T) {
	good := newFakeNode(map[string]interface{}{"klay_sendRawTransaction": testTxHash})
	bad := newFakeNode(nil)
	bad.fail = &jsonError{Code: -32000, Message: "nonce too low"}
	goodSrv, badSrv := httptest.NewServer(good), httptest.NewServer(bad)
	defer goodSrv.Close()
	defer badSrv.Close()

	r, err := NewReader(map[string]string{"good": goodSrv.URL, "bad": badSrv.URL}, "klay", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	h, err := r.Broadcast(context.Background(), "0x01")
	if err != nil || h.Hex() != testTxHash {
		t.Fatalf("broadcast returned %s %v", h.Hex(), err)
	}
	if c := good.count("klay_sendRawTransaction"); c != 1 {
		t.Errorf("good node received %d transactions, want 1", c)
	}

	only, err := NewReader(map[string]string{"bad": badSrv.URL}, "klay", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := only.Broadcast(context.Background(), "0x01"); err == nil || !strings.Contains(err.Error(), "nonce too low") {
		t.Fatalf("want nonce too low, got %v", err)
	}
}
