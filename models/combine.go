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
	"fmt"
)

// CombineSignedRawTransactions decodes every raw transaction, checks that they only
// differ in their signatures, and returns the raw encoding of the transaction
// carrying the union of all signatures. An unsigned non-typed raw transaction
// decodes without a chain id, so it does not combine with signed ones.
func CombineSignedRawTransactions(raws [][]byte) ([]byte, error) {
	if len(raws) == 0 {
		return nil, formatErr("no raw transaction to combine")
	}
	base, err := DecodeRaw(raws[0])
	if err != nil {
		return nil, err
	}
	combined, err := base.combine(raws[1:])
	if err != nil {
		return nil, err
	}
	return combined.RawEncoding()
}

// CombineSignedRawTransactions merges the signatures of raws into tx. Every raw
// transaction must equal tx in all fields but the signatures, chain id included.
func (tx *Transaction) CombineSignedRawTransactions(raws [][]byte) ([]byte, error) {
	combined, err := tx.combine(raws)
	if err != nil {
		return nil, err
	}
	return combined.RawEncoding()
}

func (tx *Transaction) combine(raws [][]byte) (*Transaction, error) {
	sigs := make([]SignatureData, 0, len(tx.sigs)*(len(raws)+1))
	sigs = append(sigs, tx.sigs...)
	for i, raw := range raws {
		decoded, err := DecodeRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("raw transaction %d: %w", i, err)
		}
		if !tx.CompareTxField(decoded, false) {
			return nil, fmt.Errorf("%w: raw transaction %d", ErrTxNotMatch, i)
		}
		sigs = append(sigs, decoded.sigs...)
	}
	return tx.WithSignatures(sigs...)
}
