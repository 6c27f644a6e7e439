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

package cmd

import (
	"errors"
	"os"
	"sync"

	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/config"
	"github.com/ThinkiumGroup/go-txsign/consts"
	"github.com/ThinkiumGroup/go-txsign/ethrpc"
	"github.com/ThinkiumGroup/go-txsign/keyring"
	"github.com/ThinkiumGroup/go-txsign/sigpool"
	"github.com/sirupsen/logrus"
)

var ErrNoNetwork = errors.New("no nodes configured, set network.nodes in the config file")

type RunContext interface {
	Config() *config.Config          // loaded configuration
	Keyrings() *keyring.Container    // configured keyrings
	Reader() (*ethrpc.Reader, error) // configured nodes
	Pool() (*sigpool.Pool, error)    // storage of partially signed transactions
	Close()                          // release opened resources
}

type runContext struct {
	conf *config.Config
	keys *keyring.Container

	lock   sync.Mutex
	reader *ethrpc.Reader
	pool   *sigpool.Pool
}

// newRunContext loads the config at path. A missing file at the default path
// gives the default config.
func newRunContext(path string, level string) (*runContext, error) {
	var (
		conf *config.Config
		err  error
	)
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) && path == consts.DefaultConfigPath {
		conf, err = config.ParseConfig([]byte("{}"))
	} else {
		conf, err = config.LoadConfig(path)
	}
	if err != nil {
		return nil, err
	}
	if level != "" {
		l, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		conf.Level = l
	}
	logrus.SetLevel(conf.Level)

	keys, err := keyring.NewContainerFromConfig(conf.Keys)
	if err != nil {
		return nil, err
	}
	log.Debugf("[CMD] %s loaded", conf)
	return &runContext{conf: conf, keys: keys}, nil
}

func (c *runContext) Config() *config.Config {
	return c.conf
}

func (c *runContext) Keyrings() *keyring.Container {
	return c.keys
}

func (c *runContext) Reader() (*ethrpc.Reader, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.reader != nil {
		return c.reader, nil
	}
	if !c.conf.Network.HasNodes() {
		return nil, ErrNoNetwork
	}
	r, err := ethrpc.NewReader(c.conf.Network.Nodes, c.conf.Network.Namespace, c.conf.Network.Timeout)
	if err != nil {
		return nil, err
	}
	c.reader = r
	return r, nil
}

func (c *runContext) Pool() (*sigpool.Pool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.pool != nil {
		return c.pool, nil
	}
	p, err := sigpool.Open(c.conf.Pool)
	if err != nil {
		return nil, err
	}
	c.pool = p
	return p, nil
}

func (c *runContext) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.pool != nil {
		if err := c.pool.Close(); err != nil {
			log.Warnf("[CMD] close signature pool failed: %v", err)
		}
		c.pool = nil
	}
}
