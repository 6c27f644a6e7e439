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
	"errors"
	"fmt"
	"math/big"

	"github.com/ThinkiumGroup/go-cipher"
	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/hexutil"
	"github.com/ThinkiumGroup/go-txsign/models"
)

var (
	ErrInvalidKey   = errors.New("invalid private key")
	ErrKeyIndex     = errors.New("key index out of range")
	ErrNoKeyForRole = errors.New("no key for role")
)

// PrivateKey is one secp256k1 key with its public key and derived address.
type PrivateKey struct {
	sk      cipher.ECCPrivateKey
	pub     []byte
	address common.Address
}

func newPrivateKey(priv []byte) (*PrivateKey, error) {
	if len(priv) != 32 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidKey, len(priv))
	}
	sk, err := common.RealCipher.BytesToPriv(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub := sk.GetPublicKey().ToBytes()
	addr, err := models.PublicKeyToAddress(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &PrivateKey{sk: sk, pub: pub, address: addr}, nil
}

// NewPrivateKey parses a 0x prefixed hex private key.
func NewPrivateKey(hexKey string) (*PrivateKey, error) {
	b, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return newPrivateKey(b)
}

// GeneratePrivateKey creates a random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	sk, err := common.RealCipher.GenerateKey()
	if err != nil {
		return nil, err
	}
	return newPrivateKey(sk.ToBytes())
}

func (k *PrivateKey) Address() common.Address { return k.address }

// PublicKey returns the uncompressed public key.
func (k *PrivateKey) PublicKey() []byte { return common.CopyBytes(k.pub) }

// Hex returns the 0x prefixed private key.
func (k *PrivateKey) Hex() string { return hexutil.Encode(k.sk.ToBytes()) }

func (k *PrivateKey) String() string {
	return "Key{" + models.AddressString(k.address) + "}"
}

func (k *PrivateKey) sign(hash []byte) (r, s *big.Int, parity byte, err error) {
	if len(hash) != common.HashLength {
		return nil, nil, 0, fmt.Errorf("hash length %d, want %d", len(hash), common.HashLength)
	}
	sig, err := common.RealCipher.Sign(k.sk.ToBytes(), hash)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(sig) != 65 {
		return nil, nil, 0, fmt.Errorf("signature length %d, want 65", len(sig))
	}
	return new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:64]), sig[64], nil
}

// Sign signs hash, v is the EIP-155 value for chainID.
func (k *PrivateKey) Sign(hash []byte, chainID *big.Int) (models.SignatureData, error) {
	r, s, parity, err := k.sign(hash)
	if err != nil {
		return models.SignatureData{}, err
	}
	return models.NewSignatureData(models.EncodeV(parity, chainID), r, s), nil
}

// ECSign signs hash, v is the recovery parity.
func (k *PrivateKey) ECSign(hash []byte) (models.SignatureData, error) {
	r, s, parity, err := k.sign(hash)
	if err != nil {
		return models.SignatureData{}, err
	}
	return models.NewSignatureData(big.NewInt(int64(parity)), r, s), nil
}
