// Copyright 2020 Thinkium
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sigpool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/config"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/sirupsen/logrus"
	"github.com/stephenfire/go-rtl"
	"golang.org/x/crypto/sha3"
)

// Record is one partially signed transaction collected by the pool.
type Record struct {
	Raw      []byte // raw encoding as produced by the signer
	Received uint64 // unix time in seconds
}

func (r *Record) String() string {
	if r == nil {
		return "Record<nil>"
	}
	return fmt.Sprintf("Record{Raw:%x Received:%d}", common.ForPrint(r.Raw), r.Received)
}

// Pool collects raw transactions signed by different parties, grouped by their
// signature hash, until they are combined into one.
type Pool struct {
	store  Store
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewPool(store Store) *Pool {
	return &Pool{
		store:  store,
		now:    time.Now,
		logger: log.WithField("L", "SIGPOOL"),
	}
}

// Open creates the pool backed by the store conf selects.
func Open(conf *config.PoolConf) (*Pool, error) {
	if conf == nil {
		conf = &config.PoolConf{}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	switch conf.Backend {
	case config.PoolRedis:
		return NewPool(NewRedisStore(conf.RedisAddr, conf.RedisPwd, conf.RedisDB, conf.Prefix, conf.TTL)), nil
	default:
		store, err := OpenLevelStore(conf.Path)
		if err != nil {
			return nil, err
		}
		return NewPool(store), nil
	}
}

func contentID(raw []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(raw)
	return d.Sum(nil)
}

// Put adds a signed raw transaction and returns the signature hash it was filed
// under. Putting the same raw transaction twice keeps one record.
func (p *Pool) Put(ctx context.Context, raw []byte) (common.Hash, error) {
	tx, err := models.DecodeRaw(raw)
	if err != nil {
		return common.Hash{}, err
	}
	if tx.Signatures().IsEmpty() {
		return common.Hash{}, models.ErrEmptySignature
	}
	hash, err := tx.SigHash()
	if err != nil {
		return common.Hash{}, err
	}
	data, err := rtl.Marshal(&Record{Raw: common.CopyBytes(raw), Received: uint64(p.now().Unix())})
	if err != nil {
		return common.Hash{}, err
	}
	if err := p.store.Put(ctx, hash[:], contentID(raw), data); err != nil {
		return common.Hash{}, err
	}
	p.logger.Debugf("[SIGPOOL] %s from %s filed under %x", tx.Type(), models.AddressString(tx.From()), hash[:])
	return hash, nil
}

// Records returns the records filed under hash, oldest first.
func (p *Pool) Records(ctx context.Context, hash common.Hash) ([]*Record, error) {
	values, err := p.store.List(ctx, hash[:])
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(values))
	for _, v := range values {
		r := new(Record)
		if err := rtl.Unmarshal(v, r); err != nil {
			p.logger.Warnf("[SIGPOOL] skip broken record under %x: %v", hash[:], err)
			continue
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Received < records[j].Received
	})
	return records, nil
}

// Combine merges the signatures of every record filed under hash.
func (p *Pool) Combine(ctx context.Context, hash common.Hash) (*models.Transaction, error) {
	records, err := p.Records(ctx, hash)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, hash[:])
	}
	raws := make([][]byte, len(records))
	for i, r := range records {
		raws[i] = r.Raw
	}
	combined, err := models.CombineSignedRawTransactions(raws)
	if err != nil {
		return nil, err
	}
	return models.DecodeRaw(combined)
}

// Delete drops everything filed under hash.
func (p *Pool) Delete(ctx context.Context, hash common.Hash) error {
	return p.store.Delete(ctx, hash[:])
}

func (p *Pool) Close() error {
	return p.store.Close()
}
