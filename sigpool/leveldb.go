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
	"sync"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var levelKeyPrefix = []byte("sp:")

// LevelStore keeps entries in a LevelDB, every value is stored at
// prefix || key || id.
type LevelStore struct {
	lock   sync.RWMutex
	db     *leveldb.DB
	closed bool
}

// OpenLevelStore opens or creates the database at path, a corrupted one is recovered.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		log.Warnf("[SIGPOOL] database at %s corrupted, recovering: %v", path, err)
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, common.NewDvppError("open signature pool at "+path+" error", err)
	}
	return NewLevelStore(db), nil
}

func NewLevelStore(db *leveldb.DB) *LevelStore {
	return &LevelStore{db: db}
}

func levelKey(parts ...[]byte) []byte {
	k := common.CopyBytes(levelKeyPrefix)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func (s *LevelStore) Put(_ context.Context, key, id, value []byte) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Put(levelKey(key, id), value, nil)
}

func (s *LevelStore) List(_ context.Context, key []byte) ([][]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	it := s.db.NewIterator(util.BytesPrefix(levelKey(key)), nil)
	defer it.Release()
	var values [][]byte
	for it.Next() {
		values = append(values, common.CopyBytes(it.Value()))
	}
	return values, it.Error()
}

func (s *LevelStore) Delete(_ context.Context, key []byte) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		return ErrClosed
	}
	it := s.db.NewIterator(util.BytesPrefix(levelKey(key)), nil)
	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(common.CopyBytes(it.Key()))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
