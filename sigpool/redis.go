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
	"time"

	"github.com/ThinkiumGroup/go-common/hexutil"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps every key as a redis hash of id -> value, expiring ttl after
// the last put.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(addr, pwd string, db int, prefix string, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pwd,
		DB:       db,
	})
	return NewRedisStoreWithClient(client, prefix, ttl)
}

func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) redisKey(key []byte) string {
	return s.prefix + hexutil.Encode(key)
}

// Ping checks the connection to the server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Put(ctx context.Context, key, id, value []byte) error {
	rk := s.redisKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, rk, hexutil.Encode(id), value)
		if s.ttl > 0 {
			pipe.Expire(ctx, rk, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) List(ctx context.Context, key []byte) ([][]byte, error) {
	vals, err := s.client.HVals(ctx, s.redisKey(key)).Result()
	if err != nil {
		return nil, err
	}
	ret := make([][]byte, len(vals))
	for i, v := range vals {
		ret[i] = []byte(v)
	}
	return ret, nil
}

func (s *RedisStore) Delete(ctx context.Context, key []byte) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
