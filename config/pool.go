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

package config

import (
	"fmt"
	"time"
)

const (
	PoolLevelDB = "leveldb"
	PoolRedis   = "redis"

	PoolDefaultPath   = "./sigpool"
	PoolDefaultAddr   = "127.0.0.1:6379"
	PoolDefaultDB     = 0
	PoolDefaultPrefix = "txsign:sigpool:"
	PoolDefaultTTL    = 24 * time.Hour
)

// PoolConf selects where partially signed transactions are kept until combined.
type PoolConf struct {
	Backend   string        `yaml:"backend" json:"backend"` // leveldb or redis
	Path      string        `yaml:"path" json:"path"`       // leveldb directory
	RedisAddr string        `yaml:"addr" json:"addr"`
	RedisPwd  string        `yaml:"pwd" json:"pwd"`
	RedisDB   int           `yaml:"db" json:"db"`
	Prefix    string        `yaml:"prefix" json:"prefix"` // redis key prefix
	TTL       time.Duration `yaml:"ttl" json:"ttl"`       // redis expiration of a pending entry
}

func (p *PoolConf) Validate() error {
	if p == nil {
		return nil
	}
	switch p.Backend {
	case "":
		p.Backend = PoolLevelDB
	case PoolLevelDB, PoolRedis:
	default:
		return fmt.Errorf("unknown pool backend %q", p.Backend)
	}
	if p.Path == "" {
		p.Path = PoolDefaultPath
	}
	if p.RedisAddr == "" {
		p.RedisAddr = PoolDefaultAddr
	}
	if p.RedisDB < 0 {
		p.RedisDB = PoolDefaultDB
	}
	if p.Prefix == "" {
		p.Prefix = PoolDefaultPrefix
	}
	if p.TTL <= 0 {
		p.TTL = PoolDefaultTTL
	}
	return nil
}

func (p *PoolConf) String() string {
	if p == nil {
		return "PoolConf<nil>"
	}
	if p.Backend == PoolRedis {
		return fmt.Sprintf("PoolConf{Backend:%s Addr:%s DB:%d Prefix:%s TTL:%s}",
			p.Backend, p.RedisAddr, p.RedisDB, p.Prefix, p.TTL)
	}
	return fmt.Sprintf("PoolConf{Backend:%s Path:%s}", p.Backend, p.Path)
}
