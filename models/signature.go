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
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ThinkiumGroup/go-common/hexutil"
	mapset "github.com/deckarep/golang-set"
)

// SignatureData is one ECDSA signature attached to a transaction. V, R and S are
// kept as minimal big-endian byte strings, which is also how they are encoded.
type SignatureData struct {
	V []byte
	R []byte
	S []byte
}

// EmptySignature is the placeholder of an unsigned transaction: ("0x01", "0x", "0x")
func EmptySignature() SignatureData {
	return SignatureData{V: []byte{0x01}, R: []byte{}, S: []byte{}}
}

func NewSignatureData(v, r, s *big.Int) SignatureData {
	return SignatureData{V: bigBytes(v), R: bigBytes(r), S: bigBytes(s)}
}

// SignatureDataFromBytes copies the values, stripping leading zero bytes.
func SignatureDataFromBytes(v, r, s []byte) SignatureData {
	return SignatureData{V: trimLeadingZeros(v), R: trimLeadingZeros(r), S: trimLeadingZeros(s)}
}

// ParseSignatureData parses hex strings ("0x" prefixed, "0x" alone means empty).
func ParseSignatureData(v, r, s string) (SignatureData, error) {
	vb, err := decodeHexValue(v)
	if err != nil {
		return SignatureData{}, validationErr("invalid v %q: %v", v, err)
	}
	rb, err := decodeHexValue(r)
	if err != nil {
		return SignatureData{}, validationErr("invalid r %q: %v", r, err)
	}
	sb, err := decodeHexValue(s)
	if err != nil {
		return SignatureData{}, validationErr("invalid s %q: %v", s, err)
	}
	return SignatureDataFromBytes(vb, rb, sb), nil
}

// RawSignatureValues returns v, r, s as integers.
func (sd SignatureData) RawSignatureValues() (v, r, s *big.Int) {
	return new(big.Int).SetBytes(sd.V), new(big.Int).SetBytes(sd.R), new(big.Int).SetBytes(sd.S)
}

func (sd SignatureData) Equal(o SignatureData) bool {
	return bytes.Equal(sd.V, o.V) && bytes.Equal(sd.R, o.R) && bytes.Equal(sd.S, o.S)
}

func (sd SignatureData) IsEmpty() bool {
	return sd.Equal(EmptySignature())
}

// ChainID derives the chain id folded into v by EIP-155: v = parity + chainId*2 + 35.
// Unprotected signatures (v of 27 or 28) give 0.
func (sd SignatureData) ChainID() *big.Int {
	v, _, _ := sd.RawSignatureValues()
	return deriveChainId(v)
}

func (sd SignatureData) copy() SignatureData {
	return SignatureData{
		V: append([]byte{}, sd.V...),
		R: append([]byte{}, sd.R...),
		S: append([]byte{}, sd.S...),
	}
}

func (sd SignatureData) key() string {
	return hexutil.Encode(sd.V) + ":" + hexutil.Encode(sd.R) + ":" + hexutil.Encode(sd.S)
}

func (sd SignatureData) Strings() (v, r, s string) {
	return encodeHexValue(sd.V), encodeHexValue(sd.R), encodeHexValue(sd.S)
}

func (sd SignatureData) String() string {
	v, r, s := sd.Strings()
	return fmt.Sprintf("[%s %s %s]", v, r, s)
}

func (sd SignatureData) MarshalJSON() ([]byte, error) {
	v, r, s := sd.Strings()
	return json.Marshal([]string{v, r, s})
}

func (sd *SignatureData) UnmarshalJSON(data []byte) error {
	var vrs []string
	if err := json.Unmarshal(data, &vrs); err != nil {
		return err
	}
	if len(vrs) != 3 {
		return validationErr("signature needs 3 values, got %d", len(vrs))
	}
	parsed, err := ParseSignatureData(vrs[0], vrs[1], vrs[2])
	if err != nil {
		return err
	}
	*sd = parsed
	return nil
}

// the encoded form of one signature inside the signature list of native transactions
type sigRLP struct {
	V *big.Int
	R *big.Int
	S *big.Int
}

func (sd SignatureData) toRLP() sigRLP {
	v, r, s := sd.RawSignatureValues()
	return sigRLP{V: v, R: r, S: s}
}

// Signatures is an ordered signature list.
type Signatures []SignatureData

// IsEmpty reports whether no real signature is present.
func (ss Signatures) IsEmpty() bool {
	return len(ss) == 0 || (len(ss) == 1 && ss[0].IsEmpty())
}

func (ss Signatures) Equal(o Signatures) bool {
	if len(ss) != len(o) {
		return false
	}
	for i := range ss {
		if !ss[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (ss Signatures) Clone() Signatures {
	if ss == nil {
		return nil
	}
	ret := make(Signatures, len(ss))
	for i := range ss {
		ret[i] = ss[i].copy()
	}
	return ret
}

func (ss Signatures) String() string {
	parts := make([]string, len(ss))
	for i := range ss {
		parts[i] = ss[i].String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RefineSignatures removes duplicated signatures keeping the first occurrence, drops
// the empty placeholder when real signatures are present, and returns the single
// placeholder for an empty list.
func RefineSignatures(sigs []SignatureData) Signatures {
	seen := mapset.NewThreadUnsafeSet()
	refined := make(Signatures, 0, len(sigs))
	for _, sig := range sigs {
		if seen.Add(sig.key()) {
			refined = append(refined, sig.copy())
		}
	}
	if len(refined) > 1 {
		kept := refined[:0]
		for _, sig := range refined {
			if !sig.IsEmpty() {
				kept = append(kept, sig)
			}
		}
		refined = kept
	}
	if len(refined) == 0 {
		refined = append(refined, EmptySignature())
	}
	return refined
}

// RefineSignatures refines sigs and fails when the type only allows one signature
// and more than one remains.
func (t TxType) RefineSignatures(sigs []SignatureData) (Signatures, error) {
	refined := RefineSignatures(sigs)
	if !t.AllowsMultiSig() && len(refined) > 1 {
		return nil, policyErr("%s cannot have multiple signatures", t)
	}
	return refined, nil
}

func bigBytes(b *big.Int) []byte {
	if b == nil {
		return []byte{}
	}
	return b.Bytes()
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return append([]byte{}, b[i:]...)
}

func decodeHexValue(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	h := s[2:]
	if len(h)%2 == 1 {
		h = "0" + h
	}
	return hexutil.Decode("0x" + h)
}

func encodeHexValue(b []byte) string {
	return hexutil.Encode(b)
}
