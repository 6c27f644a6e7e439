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
	"errors"
	"fmt"
	"strings"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/hexutil"
	"github.com/ThinkiumGroup/go-common/log"
)

// KeyConf describes one keyring. Keys sign every role unless the role has its own
// keys, and Address defaults to the address of the first key.
type KeyConf struct {
	Address           string   `yaml:"address" json:"address"`
	Keys              []string `yaml:"keys" json:"keys"`
	AccountUpdateKeys []string `yaml:"accountupdate" json:"accountupdate"`
	FeePayerKeys      []string `yaml:"feepayer" json:"feepayer"`
}

func trimHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func checkPrivateKeys(name string, keys []string) error {
	for i, k := range keys {
		skbytes, err := hexutil.Decode("0x" + trimHex(k))
		if err != nil {
			return fmt.Errorf("%s[%d] hex error: %v", name, i, err)
		}
		if _, err := common.RealCipher.BytesToPriv(skbytes); err != nil {
			return fmt.Errorf("%s[%d] parse error: %v", name, i, err)
		}
	}
	return nil
}

func (k *KeyConf) Validate() error {
	if k == nil {
		return nil
	}
	if len(k.Keys) == 0 {
		return errors.New("keys must be set")
	}
	if k.Address != "" {
		b, err := hexutil.Decode("0x" + trimHex(k.Address))
		if err != nil || len(b) != common.AddressLength {
			return fmt.Errorf("invalid address %q", k.Address)
		}
	}
	if err := checkPrivateKeys("keys", k.Keys); err != nil {
		return err
	}
	if err := checkPrivateKeys("accountupdate", k.AccountUpdateKeys); err != nil {
		return err
	}
	if err := checkPrivateKeys("feepayer", k.FeePayerKeys); err != nil {
		return err
	}
	return nil
}

// RoleKeys returns the keys per role in role order: transaction, account update and
// fee payer.
func (k *KeyConf) RoleKeys() [][]string {
	return [][]string{k.Keys, k.AccountUpdateKeys, k.FeePayerKeys}
}

func (k *KeyConf) String() string {
	if k == nil {
		return "KeyConf<nil>"
	}
	return fmt.Sprintf("KeyConf{Address:%s Keys:%d AccountUpdate:%d FeePayer:%d}",
		k.Address, len(k.Keys), len(k.AccountUpdateKeys), len(k.FeePayerKeys))
}

type KeyConfs []*KeyConf

func (ks KeyConfs) Validate() error {
	seen := make(map[string]struct{}, len(ks))
	for i, k := range ks {
		if k == nil {
			continue
		}
		if err := k.Validate(); err != nil {
			return fmt.Errorf("keys[%d]: %v", i, err)
		}
		if k.Address == "" {
			continue
		}
		addr := strings.ToLower(trimHex(k.Address))
		if _, ok := seen[addr]; ok {
			return fmt.Errorf("keys[%d]: duplicated address %s", i, k.Address)
		}
		seen[addr] = struct{}{}
	}
	log.Infof("[CONFIG] %d keyrings configured", len(ks))
	return nil
}
