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

package models

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Quantity is a hex encoded unsigned integer ("0x1a"). The literal "0x" is the
// unset sentinel, used by nonce and chain id before they are filled.
type Quantity string

const UnsetQuantity Quantity = "0x"

// ParseQuantity validates s as a hex quantity of at most 256 bits and returns its
// canonical form (lower case, no leading zeros, "0x0" for zero). Leading zeros in s
// are accepted and dropped. Empty string and "0x" give the unset sentinel.
func ParseQuantity(s string) (Quantity, error) {
	if s == "" || s == string(UnsetQuantity) {
		return UnsetQuantity, nil
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "0x") {
		return UnsetQuantity, validationErr("invalid quantity %q: missing 0x prefix", s)
	}
	digits := strings.TrimLeft(lower[2:], "0")
	if digits == "" {
		digits = "0"
	}
	v, err := uint256.FromHex("0x" + digits)
	if err != nil {
		return UnsetQuantity, validationErr("invalid quantity %q: %v", s, err)
	}
	return Quantity(v.Hex()), nil
}

// MustQuantity is like ParseQuantity but panics on malformed input.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityFromBig encodes a non-negative integer, nil gives the unset sentinel.
func QuantityFromBig(b *big.Int) Quantity {
	if b == nil {
		return UnsetQuantity
	}
	return Quantity("0x" + b.Text(16))
}

func QuantityFromUint64(v uint64) Quantity {
	return QuantityFromBig(new(big.Int).SetUint64(v))
}

func (q Quantity) IsUnset() bool {
	return q == "" || q == UnsetQuantity
}

// Big returns the integer value, 0 for the unset sentinel.
func (q Quantity) Big() *big.Int {
	if q.IsUnset() {
		return new(big.Int)
	}
	b, ok := new(big.Int).SetString(string(q)[2:], 16)
	if !ok {
		return new(big.Int)
	}
	return b
}

// Uint64 returns the value truncated to 64 bits.
func (q Quantity) Uint64() uint64 {
	return q.Big().Uint64()
}

// Equal compares value-wise, two unset quantities are equal.
func (q Quantity) Equal(o Quantity) bool {
	if q.IsUnset() || o.IsUnset() {
		return q.IsUnset() == o.IsUnset()
	}
	return q.Big().Cmp(o.Big()) == 0
}

func (q Quantity) String() string {
	if q == "" {
		return string(UnsetQuantity)
	}
	return string(q)
}

// rlpValue is the consensus encoding of the quantity, unset encodes as zero.
func (q Quantity) rlpValue() *big.Int {
	return q.Big()
}
