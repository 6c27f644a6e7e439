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
	"math/big"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-txsign/models"
)

// legacyAccountKey is the RLP encoding of AccountKeyLegacy: the account is
// controlled by the key its address was derived from.
var legacyAccountKey = []byte{0x01, 0xc0}

// LegacyAccountKey returns the encoded account key used by AccountUpdate
// transactions to couple an account back to its address-derived key.
func LegacyAccountKey() []byte {
	return common.CopyBytes(legacyAccountKey)
}

// keys holds the private keys of an account per role. A role without keys signs
// with the transaction role keys.
type keys struct {
	address common.Address
	roles   [models.RoleLength][]*PrivateKey
}

func (k *keys) Address() common.Address { return k.address }

// IsDecoupled reports whether more than one key is held or the only key does not
// derive the address.
func (k *keys) IsDecoupled() bool {
	var first *PrivateKey
	for _, rk := range k.roles {
		for _, key := range rk {
			if first == nil {
				first = key
			} else if key != first && key.Address() != first.Address() {
				return true
			}
		}
	}
	return first == nil || first.Address() != k.address
}

// Keys returns the keys signing for role.
func (k *keys) Keys(role models.Role) []*PrivateKey {
	if role < 0 || role >= models.RoleLength {
		return nil
	}
	if len(k.roles[role]) == 0 {
		return k.roles[models.RoleTransaction]
	}
	return k.roles[role]
}

func (k *keys) keyAt(role models.Role, index int) (*PrivateKey, error) {
	rk := k.Keys(role)
	if len(rk) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForRole, role)
	}
	if index < 0 || index >= len(rk) {
		return nil, fmt.Errorf("%w: %d of %d keys for %s", ErrKeyIndex, index, len(rk), role)
	}
	return rk[index], nil
}

func (k *keys) Sign(hash []byte, chainID *big.Int, role models.Role) ([]models.SignatureData, error) {
	rk := k.Keys(role)
	if len(rk) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForRole, role)
	}
	sigs := make([]models.SignatureData, 0, len(rk))
	for _, key := range rk {
		sig, err := key.Sign(hash, chainID)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (k *keys) SignAt(hash []byte, chainID *big.Int, role models.Role, index int) (models.SignatureData, error) {
	key, err := k.keyAt(role, index)
	if err != nil {
		return models.SignatureData{}, err
	}
	return key.Sign(hash, chainID)
}

func (k *keys) ECSign(hash []byte, role models.Role) ([]models.SignatureData, error) {
	rk := k.Keys(role)
	if len(rk) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForRole, role)
	}
	sigs := make([]models.SignatureData, 0, len(rk))
	for _, key := range rk {
		sig, err := key.ECSign(hash)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (k *keys) ECSignAt(hash []byte, role models.Role, index int) (models.SignatureData, error) {
	key, err := k.keyAt(role, index)
	if err != nil {
		return models.SignatureData{}, err
	}
	return key.ECSign(hash)
}

// SingleKeyring signs every role with one key.
type SingleKeyring struct {
	keys
}

func NewSingleKeyring(address common.Address, key *PrivateKey) *SingleKeyring {
	kr := &SingleKeyring{keys{address: address}}
	kr.roles[models.RoleTransaction] = []*PrivateKey{key}
	return kr
}

// NewSingleKeyringFromHex creates the keyring of the address derived from hexKey.
func NewSingleKeyringFromHex(hexKey string) (*SingleKeyring, error) {
	key, err := NewPrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewSingleKeyring(key.Address(), key), nil
}

// Generate creates a SingleKeyring with a random key.
func Generate() (*SingleKeyring, error) {
	key, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return NewSingleKeyring(key.Address(), key), nil
}

func (kr *SingleKeyring) Key() *PrivateKey { return kr.roles[models.RoleTransaction][0] }

func (kr *SingleKeyring) String() string {
	return fmt.Sprintf("SingleKeyring{%s}", models.AddressString(kr.address))
}

// MultipleKeyring signs every role with all of its keys. Holding a single key that
// derives the address, it is coupled and may sign ethereum transactions.
type MultipleKeyring struct {
	keys
}

func NewMultipleKeyring(address common.Address, ks ...*PrivateKey) (*MultipleKeyring, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrInvalidKey)
	}
	kr := &MultipleKeyring{keys{address: address}}
	kr.roles[models.RoleTransaction] = append([]*PrivateKey(nil), ks...)
	return kr, nil
}

func (kr *MultipleKeyring) String() string {
	return fmt.Sprintf("MultipleKeyring{%s keys:%d}", models.AddressString(kr.address), len(kr.roles[models.RoleTransaction]))
}

// RoleBasedKeyring holds a key list per role, indexed by models.Role.
type RoleBasedKeyring struct {
	keys
}

func NewRoleBasedKeyring(address common.Address, roleKeys [][]*PrivateKey) (*RoleBasedKeyring, error) {
	if len(roleKeys) > int(models.RoleLength) {
		return nil, fmt.Errorf("%w: %d roles, at most %d", ErrInvalidKey, len(roleKeys), models.RoleLength)
	}
	if len(roleKeys) == 0 || len(roleKeys[models.RoleTransaction]) == 0 {
		return nil, fmt.Errorf("%w: no keys for %s", ErrInvalidKey, models.RoleTransaction)
	}
	kr := &RoleBasedKeyring{keys{address: address}}
	for i, rk := range roleKeys {
		kr.roles[i] = append([]*PrivateKey(nil), rk...)
	}
	return kr, nil
}

func (kr *RoleBasedKeyring) String() string {
	return fmt.Sprintf("RoleBasedKeyring{%s tx:%d update:%d feePayer:%d}", models.AddressString(kr.address),
		len(kr.roles[models.RoleTransaction]), len(kr.roles[models.RoleAccountUpdate]), len(kr.roles[models.RoleFeePayer]))
}
