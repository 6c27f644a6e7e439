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

package keyring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/models"
)

var (
	ErrKeyringExists   = errors.New("keyring already exists")
	ErrKeyringNotFound = errors.New("keyring not found")
)

// Container is an in-memory wallet of keyrings indexed by address.
type Container struct {
	lock     sync.RWMutex
	keyrings map[common.Address]models.Keyring
}

func NewContainer(krs ...models.Keyring) (*Container, error) {
	c := &Container{keyrings: make(map[common.Address]models.Keyring)}
	for _, kr := range krs {
		if err := c.Add(kr); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) Add(kr models.Keyring) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, exist := c.keyrings[kr.Address()]; exist {
		return fmt.Errorf("%w: %s", ErrKeyringExists, models.AddressString(kr.Address()))
	}
	c.keyrings[kr.Address()] = kr
	return nil
}

// Remove deletes the keyring of addr, it reports whether one was present.
func (c *Container) Remove(addr common.Address) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, exist := c.keyrings[addr]; !exist {
		return false
	}
	delete(c.keyrings, addr)
	return true
}

func (c *Container) Get(addr common.Address) (models.Keyring, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	kr, ok := c.keyrings[addr]
	return kr, ok
}

func (c *Container) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.keyrings)
}

// Addresses returns the held addresses in ascending byte order.
func (c *Container) Addresses() []common.Address {
	c.lock.RLock()
	defer c.lock.RUnlock()
	addrs := make([]common.Address, 0, len(c.keyrings))
	for addr := range c.keyrings {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return models.AddressString(addrs[i]) < models.AddressString(addrs[j])
	})
	return addrs
}

// Sign signs tx with the keyring of address.
func (c *Container) Sign(ctx context.Context, address common.Address, tx *models.Transaction, opts ...models.SignOption) (*models.Transaction, error) {
	kr, ok := c.Get(address)
	if !ok {
		return tx, fmt.Errorf("%w: %s", ErrKeyringNotFound, models.AddressString(address))
	}
	signed, err := models.Sign(ctx, tx, kr, opts...)
	if err != nil {
		log.Warnf("[KEYRING] sign %s with %s failed: %v", tx.Type(), models.AddressString(address), err)
		return signed, err
	}
	return signed, nil
}

// SignWithIndex signs tx with the index-th key of the keyring of address.
func (c *Container) SignWithIndex(ctx context.Context, address common.Address, tx *models.Transaction, index int, opts ...models.SignOption) (*models.Transaction, error) {
	kr, ok := c.Get(address)
	if !ok {
		return tx, fmt.Errorf("%w: %s", ErrKeyringNotFound, models.AddressString(address))
	}
	return models.SignWithIndex(ctx, tx, kr, index, opts...)
}
