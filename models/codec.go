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

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/rlp"
	"golang.org/x/crypto/sha3"
)

// SigPayload returns the bytes hashed for signing:
//
//	native:          RLP([RLP([type, fields...]), chainId, 0, 0])
//	ethereum legacy: RLP([fields..., chainId, 0, 0])
//	ethereum typed:  type || RLP([chainId, fields...])
//
// Whatever chain id is present is embedded, an unset one encodes as zero.
func (tx *Transaction) SigPayload() ([]byte, error) {
	h := tx.header()
	vals := fieldValues(tx.inner.fieldRefs(h))
	switch tx.Type().Family() {
	case FamilyNative:
		inner, err := rlp.EncodeToBytes(append([]interface{}{tx.Type().typeByte()}, vals...))
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes([]interface{}{inner, h.ChainID, uint(0), uint(0)})
	case FamilyEthereumLegacy:
		return rlp.EncodeToBytes(append(vals, h.ChainID, uint(0), uint(0)))
	case FamilyEthereumTyped:
		enc, err := rlp.EncodeToBytes(vals)
		if err != nil {
			return nil, err
		}
		return append([]byte{tx.Type().typeByte()}, enc...), nil
	default:
		return nil, ErrTxTypeNotSupported
	}
}

// SigHash is the keccak256 hash of SigPayload, the default hash to sign.
func (tx *Transaction) SigHash() (common.Hash, error) {
	if h := tx.sigHash.Load(); h != nil {
		return h.(common.Hash), nil
	}
	payload, err := tx.SigPayload()
	if err != nil {
		return common.Hash{}, err
	}
	h := keccak256Hash(payload)
	tx.sigHash.Store(h)
	return h, nil
}

// RawEncoding returns the transmittable encoding including the signatures:
//
//	native:          type || RLP([fields..., [[v, r, s], ...]])
//	ethereum legacy: RLP([fields..., v, r, s])
//	ethereum typed:  0x78 || type || RLP([chainId, fields..., v, r, s])
//
// The nonce must be set, and the chain id too for the types encoding it.
func (tx *Transaction) RawEncoding() ([]byte, error) {
	if err := tx.ValidateOptionalValues(tx.Type().IsEthereumTyped()); err != nil {
		return nil, err
	}
	vals := fieldValues(tx.inner.fieldRefs(tx.header()))
	switch tx.Type().Family() {
	case FamilyNative:
		sigs := make([]sigRLP, len(tx.sigs))
		for i, sig := range tx.sigs {
			sigs[i] = sig.toRLP()
		}
		enc, err := rlp.EncodeToBytes(append(vals, sigs))
		if err != nil {
			return nil, err
		}
		return append([]byte{tx.Type().typeByte()}, enc...), nil
	case FamilyEthereumLegacy:
		v, r, s := tx.sigs[0].RawSignatureValues()
		return rlp.EncodeToBytes(append(vals, v, r, s))
	case FamilyEthereumTyped:
		v, r, s := tx.sigs[0].RawSignatureValues()
		enc, err := rlp.EncodeToBytes(append(vals, v, r, s))
		if err != nil {
			return nil, err
		}
		return append([]byte{EthereumTxTypeEnvelope, tx.Type().typeByte()}, enc...), nil
	default:
		return nil, ErrTxTypeNotSupported
	}
}

// RawTransaction is the 0x prefixed hex form of RawEncoding.
func (tx *Transaction) RawTransaction() (string, error) {
	raw, err := tx.RawEncoding()
	if err != nil {
		return "", err
	}
	return encodeHexValue(raw), nil
}

// TransactionHash is the keccak256 hash of RawEncoding.
func (tx *Transaction) TransactionHash() (common.Hash, error) {
	if h := tx.hash.Load(); h != nil {
		return h.(common.Hash), nil
	}
	raw, err := tx.RawEncoding()
	if err != nil {
		return common.Hash{}, err
	}
	h := keccak256Hash(raw)
	tx.hash.Store(h)
	return h, nil
}

// SenderTxHash is the hash of the transaction signed by the sender only. Without
// fee delegation it equals TransactionHash.
func (tx *Transaction) SenderTxHash() (common.Hash, error) {
	return tx.TransactionHash()
}

// DecodeRaw decodes the output of RawEncoding, the envelope is detected from the
// first byte: a list prefix is a legacy transaction, 0x78 an ethereum typed one, and
// anything else the type byte of a native transaction.
func DecodeRaw(b []byte) (*Transaction, error) {
	if len(b) == 0 {
		return nil, errEmptyTypedTx
	}
	var (
		t       TxType
		payload []byte
	)
	switch {
	case b[0] >= 0xc0:
		t, payload = TxTypeLegacyTransaction, b
	case b[0] == EthereumTxTypeEnvelope:
		if len(b) < 2 {
			return nil, errEmptyTypedTx
		}
		t, payload = TxType(EthereumTxTypeEnvelope)<<8|TxType(b[1]), b[2:]
		if !t.IsEthereumTyped() {
			return nil, ErrTxTypeNotSupported
		}
	default:
		t, payload = TxType(b[0]), b[1:]
		if !t.Valid() || t.Family() != FamilyNative {
			return nil, ErrTxTypeNotSupported
		}
	}
	data, err := newTxData(t)
	if err != nil {
		return nil, err
	}
	var elems []rlp.RawValue
	if err := rlp.DecodeBytes(payload, &elems); err != nil {
		return nil, formatErr("decode %s: %v", t, err)
	}
	h := new(txHeader)
	refs := data.fieldRefs(h)
	sigCount := 3
	if t.Family() == FamilyNative {
		sigCount = 1
	}
	if len(elems) != len(refs)+sigCount {
		return nil, formatErr("decode %s: %d elements, want %d", t, len(elems), len(refs)+sigCount)
	}
	for i, ref := range refs {
		if err := decodeField(elems[i], ref); err != nil {
			return nil, formatErr("decode %s field %d: %v", t, i, err)
		}
	}
	sigs, err := decodeSignatures(t, elems[len(refs):])
	if err != nil {
		return nil, err
	}
	cfg := TxConfig{
		Nonce:      QuantityFromBig(h.Nonce).String(),
		Gas:        QuantityFromBig(h.Gas).String(),
		Signatures: sigs,
	}
	if t.IsEthereumTyped() {
		cfg.ChainID = QuantityFromBig(h.ChainID).String()
	} else if !Signatures(sigs).IsEmpty() {
		// the chain id is only carried by v
		if cid := sigs[0].ChainID(); cid.Sign() > 0 {
			cfg.ChainID = QuantityFromBig(cid).String()
		}
	}
	if t.IsEthereum() {
		if h.From != (common.Address{}) {
			cfg.From = AddressString(h.From)
		}
	} else {
		cfg.From = AddressString(h.From)
	}
	tx, err := NewTransaction(cfg, data)
	if err != nil {
		return nil, formatErr("decode %s: %v", t, err)
	}
	return tx, nil
}

// DecodeRawTransaction decodes the 0x prefixed hex form of a raw transaction.
func DecodeRawTransaction(raw string) (*Transaction, error) {
	b, err := decodeHexValue(raw)
	if err != nil {
		return nil, formatErr("invalid raw transaction: %v", err)
	}
	return DecodeRaw(b)
}

func decodeSignatures(t TxType, elems []rlp.RawValue) ([]SignatureData, error) {
	if t.Family() == FamilyNative {
		var list []sigRLP
		if err := rlp.DecodeBytes(elems[0], &list); err != nil {
			return nil, formatErr("decode %s signatures: %v", t, err)
		}
		sigs := make([]SignatureData, len(list))
		for i, s := range list {
			sigs[i] = NewSignatureData(s.V, s.R, s.S)
		}
		return sigs, nil
	}
	vrs := make([]*big.Int, 3)
	for i := range vrs {
		vrs[i] = new(big.Int)
		if err := rlp.DecodeBytes(elems[i], vrs[i]); err != nil {
			return nil, formatErr("decode %s signature: %v", t, err)
		}
	}
	return []SignatureData{NewSignatureData(vrs[0], vrs[1], vrs[2])}, nil
}

func keccak256Hash(data ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return common.BytesToHash(d.Sum(nil))
}
