package ethrpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-txsign/models"
	lru "github.com/hashicorp/golang-lru"
)

const (
	DefaultNamespace = "klay"
	DefaultTimeout   = 5 * time.Second
	chainIDCacheSize = 64
)

// chain ids never change for an endpoint, so they are cached across readers
var chainIDs *lru.Cache

func init() {
	chainIDs, _ = lru.New(chainIDCacheSize)
}

// NodeReader reads one node, the client is dialed on first use.
type NodeReader struct {
	name      string
	url       string
	namespace string
	timeout   time.Duration

	mu     sync.Mutex
	client *Client
}

func NewNodeReader(name, url, namespace string, timeout time.Duration) *NodeReader {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NodeReader{name: name, url: url, namespace: namespace, timeout: timeout}
}

func (n *NodeReader) NodeName() string { return n.name }
func (n *NodeReader) NodeURL() string  { return n.url }

func (n *NodeReader) initClient(ctx context.Context) (*Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}
	c, err := DialContext(ctx, n.url)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect to %s: %w", n.url, err)
	}
	n.client = c
	return c, nil
}

func (n *NodeReader) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	c, err := n.initClient(ctx)
	if err != nil {
		return err
	}
	timeout, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return c.CallContext(timeout, result, n.namespace+"_"+method, args...)
}

// PendingNonce returns the nonce of addr counting pending transactions.
func (n *NodeReader) PendingNonce(ctx context.Context, addr common.Address) (models.Quantity, error) {
	var res string
	if err := n.call(ctx, &res, "getTransactionCount", models.AddressString(addr), "pending"); err != nil {
		return models.UnsetQuantity, err
	}
	return models.ParseQuantity(res)
}

// ChainID returns the chain id of the node.
func (n *NodeReader) ChainID(ctx context.Context) (models.Quantity, error) {
	if v, ok := chainIDs.Get(n.url); ok {
		return v.(models.Quantity), nil
	}
	var res string
	if err := n.call(ctx, &res, "chainID"); err != nil {
		return models.UnsetQuantity, err
	}
	q, err := models.ParseQuantity(res)
	if err != nil {
		return models.UnsetQuantity, err
	}
	chainIDs.Add(n.url, q)
	return q, nil
}

// GasPrice returns the suggested gas price.
func (n *NodeReader) GasPrice(ctx context.Context) (models.Quantity, error) {
	var res string
	if err := n.call(ctx, &res, "gasPrice"); err != nil {
		return models.UnsetQuantity, err
	}
	return models.ParseQuantity(res)
}

// SendRawTransaction submits a 0x prefixed raw transaction and returns its hash.
func (n *NodeReader) SendRawTransaction(ctx context.Context, raw string) (common.Hash, error) {
	var res string
	if err := n.call(ctx, &res, "sendRawTransaction", raw); err != nil {
		return common.Hash{}, err
	}
	b, err := decodeHash(res)
	if err != nil {
		return common.Hash{}, err
	}
	return b, nil
}
