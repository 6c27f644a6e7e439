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
	"fmt"
	"strings"

	"github.com/ThinkiumGroup/go-txsign/config"
	"github.com/ThinkiumGroup/go-txsign/models"
)

func parseKeys(hexKeys []string) ([]*PrivateKey, error) {
	ret := make([]*PrivateKey, 0, len(hexKeys))
	for _, h := range hexKeys {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(h, "0x") && !strings.HasPrefix(h, "0X") {
			h = "0x" + h
		}
		key, err := NewPrivateKey(h)
		if err != nil {
			return nil, err
		}
		ret = append(ret, key)
	}
	return ret, nil
}

// FromConfig builds the keyring described by conf: a single key gives a
// SingleKeyring, keys for the transaction role only a MultipleKeyring and anything
// else a RoleBasedKeyring.
func FromConfig(conf *config.KeyConf) (models.Keyring, error) {
	if conf == nil || len(conf.Keys) == 0 {
		return nil, fmt.Errorf("%w: no keys configured", ErrInvalidKey)
	}
	roleKeys := make([][]*PrivateKey, 0, models.RoleLength)
	for _, hexKeys := range conf.RoleKeys() {
		ks, err := parseKeys(hexKeys)
		if err != nil {
			return nil, err
		}
		roleKeys = append(roleKeys, ks)
	}
	address := roleKeys[models.RoleTransaction][0].Address()
	if conf.Address != "" {
		addr, err := models.ParseAddress(conf.Address)
		if err != nil {
			return nil, err
		}
		address = addr
	}
	var others int
	for _, ks := range roleKeys[models.RoleTransaction+1:] {
		others += len(ks)
	}
	switch {
	case others > 0:
		return NewRoleBasedKeyring(address, roleKeys)
	case len(roleKeys[models.RoleTransaction]) == 1:
		return NewSingleKeyring(address, roleKeys[models.RoleTransaction][0]), nil
	default:
		return NewMultipleKeyring(address, roleKeys[models.RoleTransaction]...)
	}
}

// NewContainerFromConfig loads every configured keyring.
func NewContainerFromConfig(confs config.KeyConfs) (*Container, error) {
	krs := make([]models.Keyring, 0, len(confs))
	for i, conf := range confs {
		kr, err := FromConfig(conf)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		krs = append(krs, kr)
	}
	return NewContainer(krs...)
}
