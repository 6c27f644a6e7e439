package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/hexutil"
	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/models"
)

var ErrNoNodes = errors.New("no nodes configured")

// NodeErrors collects the failure of every node queried.
type NodeErrors []error

func (es NodeErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "couldn't read from any nodes: " + strings.Join(msgs, "; ")
}

// Is reports whether any node failed with target.
func (es NodeErrors) Is(target error) bool {
	for _, e := range es {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

func wrapError(e error, name string) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, e)
}

// Reader queries several nodes concurrently and takes the first answer. It
// satisfies models.ChainReader.
type Reader struct {
	nodes []*NodeReader
}

// NewReader builds a reader over name to url pairs.
func NewReader(nodes map[string]string, namespace string, timeout time.Duration) (*Reader, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	r := &Reader{nodes: make([]*NodeReader, 0, len(names))}
	for _, name := range names {
		r.nodes = append(r.nodes, NewNodeReader(name, nodes[name], namespace, timeout))
	}
	return r, nil
}

func (r *Reader) Nodes() []*NodeReader { return r.nodes }

type quantityResult struct {
	q   models.Quantity
	err error
}

func (r *Reader) firstQuantity(ctx context.Context, f func(context.Context, *NodeReader) (models.Quantity, error)) (models.Quantity, error) {
	resCh := make(chan quantityResult, len(r.nodes))
	for _, node := range r.nodes {
		go func(n *NodeReader) {
			q, err := f(ctx, n)
			resCh <- quantityResult{q: q, err: wrapError(err, n.NodeName())}
		}(node)
	}
	errs := make(NodeErrors, 0, len(r.nodes))
	for range r.nodes {
		res := <-resCh
		if res.err == nil {
			return res.q, nil
		}
		errs = append(errs, res.err)
	}
	return models.UnsetQuantity, errs
}

func (r *Reader) PendingNonce(ctx context.Context, addr common.Address) (models.Quantity, error) {
	return r.firstQuantity(ctx, func(ctx context.Context, n *NodeReader) (models.Quantity, error) {
		return n.PendingNonce(ctx, addr)
	})
}

func (r *Reader) ChainID(ctx context.Context) (models.Quantity, error) {
	return r.firstQuantity(ctx, func(ctx context.Context, n *NodeReader) (models.Quantity, error) {
		return n.ChainID(ctx)
	})
}

func (r *Reader) GasPrice(ctx context.Context) (models.Quantity, error) {
	return r.firstQuantity(ctx, func(ctx context.Context, n *NodeReader) (models.Quantity, error) {
		return n.GasPrice(ctx)
	})
}

type broadcastResult struct {
	hash common.Hash
	err  error
}

// Broadcast sends raw to every node. It succeeds if any node accepted it, the
// failures of the other nodes are logged.
func (r *Reader) Broadcast(ctx context.Context, raw string) (common.Hash, error) {
	resCh := make(chan broadcastResult, len(r.nodes))
	for _, node := range r.nodes {
		go func(n *NodeReader) {
			h, err := n.SendRawTransaction(ctx, raw)
			resCh <- broadcastResult{hash: h, err: wrapError(err, n.NodeName())}
		}(node)
	}
	var (
		hash common.Hash
		ok   bool
		errs NodeErrors
	)
	for range r.nodes {
		res := <-resCh
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		hash, ok = res.hash, true
	}
	if !ok {
		return common.Hash{}, errs
	}
	for _, e := range errs {
		log.Warnf("[ETHRPC] broadcast %s: %v", hash.Hex(), e)
	}
	return hash, nil
}

func decodeHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(b))
	}
	return common.BytesToHash(b), nil
}
