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
	"math/big"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/rlp"
)

// TxData is the type specific part of a transaction. It is implemented by LegacyTx,
// ValueTransferTx, ValueTransferMemoTx, AccountUpdateTx, SmartContractDeployTx,
// SmartContractExecutionTx, CancelTx, ChainDataAnchoringTx, AccessListTx and
// DynamicFeeTx.
type TxData interface {
	TxType() TxType // returns the type ID
	copy() TxData   // creates a deep copy

	// fieldRefs returns pointers to all non-signature fields in consensus order. The
	// fields shared by every type (nonce, gas, chain id, from) are taken from h, so
	// the same list serves encoding and decoding.
	fieldRefs(h *txHeader) []interface{}
	validate() error
}

// txHeader is the consensus form of the fields held by Transaction itself.
type txHeader struct {
	Nonce   *big.Int
	Gas     *big.Int
	ChainID *big.Int
	From    common.Address
}

// AccessTuple is the element type of an access list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

func (al AccessList) copy() AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, t := range al {
		cpy[i] = AccessTuple{Address: t.Address, StorageKeys: append([]common.Hash(nil), t.StorageKeys...)}
	}
	return cpy
}

// LegacyTx is the ethereum compatible legacy transaction.
type LegacyTx struct {
	GasPrice *big.Int
	To       *common.Address // nil means contract creation
	Value    *big.Int
	Input    []byte
}

func (tx *LegacyTx) TxType() TxType { return TxTypeLegacyTransaction }
func (tx *LegacyTx) copy() TxData {
	return &LegacyTx{GasPrice: copyBig(tx.GasPrice), To: copyAddressP(tx.To), Value: copyBig(tx.Value), Input: common.CopyBytes(tx.Input)}
}
func (tx *LegacyTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &tx.Input}
}
func (tx *LegacyTx) validate() error {
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value)
}

// ValueTransferTx sends value between accounts.
type ValueTransferTx struct {
	GasPrice *big.Int
	To       common.Address
	Value    *big.Int
}

func (tx *ValueTransferTx) TxType() TxType { return TxTypeValueTransfer }
func (tx *ValueTransferTx) copy() TxData {
	return &ValueTransferTx{GasPrice: copyBig(tx.GasPrice), To: tx.To, Value: copyBig(tx.Value)}
}
func (tx *ValueTransferTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &h.From}
}
func (tx *ValueTransferTx) validate() error {
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value)
}

// ValueTransferMemoTx sends value with an attached memo.
type ValueTransferMemoTx struct {
	GasPrice *big.Int
	To       common.Address
	Value    *big.Int
	Input    []byte
}

func (tx *ValueTransferMemoTx) TxType() TxType { return TxTypeValueTransferMemo }
func (tx *ValueTransferMemoTx) copy() TxData {
	return &ValueTransferMemoTx{GasPrice: copyBig(tx.GasPrice), To: tx.To, Value: copyBig(tx.Value), Input: common.CopyBytes(tx.Input)}
}
func (tx *ValueTransferMemoTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &h.From, &tx.Input}
}
func (tx *ValueTransferMemoTx) validate() error {
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value)
}

// AccountUpdateTx replaces the account key of the sender. AccountKey is the RLP
// encoding of the new key.
type AccountUpdateTx struct {
	GasPrice   *big.Int
	AccountKey []byte
}

func (tx *AccountUpdateTx) TxType() TxType { return TxTypeAccountUpdate }
func (tx *AccountUpdateTx) copy() TxData {
	return &AccountUpdateTx{GasPrice: copyBig(tx.GasPrice), AccountKey: common.CopyBytes(tx.AccountKey)}
}
func (tx *AccountUpdateTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &h.From, &tx.AccountKey}
}
func (tx *AccountUpdateTx) validate() error {
	if len(tx.AccountKey) == 0 {
		return validationErr("account key is missing")
	}
	return checkNonNegative("gasPrice", tx.GasPrice)
}

// SmartContractDeployTx deploys a contract, To is normally nil.
type SmartContractDeployTx struct {
	GasPrice      *big.Int
	To            *common.Address
	Value         *big.Int
	Input         []byte
	HumanReadable bool
	CodeFormat    *big.Int
}

func (tx *SmartContractDeployTx) TxType() TxType { return TxTypeSmartContractDeploy }
func (tx *SmartContractDeployTx) copy() TxData {
	return &SmartContractDeployTx{
		GasPrice:      copyBig(tx.GasPrice),
		To:            copyAddressP(tx.To),
		Value:         copyBig(tx.Value),
		Input:         common.CopyBytes(tx.Input),
		HumanReadable: tx.HumanReadable,
		CodeFormat:    copyBig(tx.CodeFormat),
	}
}
func (tx *SmartContractDeployTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &h.From, &tx.Input, &tx.HumanReadable, &tx.CodeFormat}
}
func (tx *SmartContractDeployTx) validate() error {
	if len(tx.Input) == 0 {
		return validationErr("input is missing")
	}
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value, "codeFormat", tx.CodeFormat)
}

// SmartContractExecutionTx calls a contract.
type SmartContractExecutionTx struct {
	GasPrice *big.Int
	To       common.Address
	Value    *big.Int
	Input    []byte
}

func (tx *SmartContractExecutionTx) TxType() TxType { return TxTypeSmartContractExecution }
func (tx *SmartContractExecutionTx) copy() TxData {
	return &SmartContractExecutionTx{GasPrice: copyBig(tx.GasPrice), To: tx.To, Value: copyBig(tx.Value), Input: common.CopyBytes(tx.Input)}
}
func (tx *SmartContractExecutionTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &h.From, &tx.Input}
}
func (tx *SmartContractExecutionTx) validate() error {
	if len(tx.Input) == 0 {
		return validationErr("input is missing")
	}
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value)
}

// CancelTx cancels a pending transaction with the same nonce.
type CancelTx struct {
	GasPrice *big.Int
}

func (tx *CancelTx) TxType() TxType { return TxTypeCancel }
func (tx *CancelTx) copy() TxData   { return &CancelTx{GasPrice: copyBig(tx.GasPrice)} }
func (tx *CancelTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &h.From}
}
func (tx *CancelTx) validate() error {
	return checkNonNegative("gasPrice", tx.GasPrice)
}

// ChainDataAnchoringTx anchors service chain data.
type ChainDataAnchoringTx struct {
	GasPrice     *big.Int
	AnchoredData []byte
}

func (tx *ChainDataAnchoringTx) TxType() TxType { return TxTypeChainDataAnchoring }
func (tx *ChainDataAnchoringTx) copy() TxData {
	return &ChainDataAnchoringTx{GasPrice: copyBig(tx.GasPrice), AnchoredData: common.CopyBytes(tx.AnchoredData)}
}
func (tx *ChainDataAnchoringTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.Nonce, &tx.GasPrice, &h.Gas, &h.From, &tx.AnchoredData}
}
func (tx *ChainDataAnchoringTx) validate() error {
	if len(tx.AnchoredData) == 0 {
		return validationErr("anchored data is missing")
	}
	return checkNonNegative("gasPrice", tx.GasPrice)
}

// AccessListTx is the EIP-2930 transaction.
type AccessListTx struct {
	GasPrice   *big.Int
	To         *common.Address // nil means contract creation
	Value      *big.Int
	Data       []byte
	AccessList AccessList
}

func (tx *AccessListTx) TxType() TxType { return TxTypeEthereumAccessList }
func (tx *AccessListTx) copy() TxData {
	return &AccessListTx{
		GasPrice:   copyBig(tx.GasPrice),
		To:         copyAddressP(tx.To),
		Value:      copyBig(tx.Value),
		Data:       common.CopyBytes(tx.Data),
		AccessList: tx.AccessList.copy(),
	}
}
func (tx *AccessListTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.ChainID, &h.Nonce, &tx.GasPrice, &h.Gas, &tx.To, &tx.Value, &tx.Data, &tx.AccessList}
}
func (tx *AccessListTx) validate() error {
	return checkNonNegative("gasPrice", tx.GasPrice, "value", tx.Value)
}

// DynamicFeeTx is the EIP-1559 transaction.
type DynamicFeeTx struct {
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	To         *common.Address // nil means contract creation
	Value      *big.Int
	Data       []byte
	AccessList AccessList
}

func (tx *DynamicFeeTx) TxType() TxType { return TxTypeEthereumDynamicFee }
func (tx *DynamicFeeTx) copy() TxData {
	return &DynamicFeeTx{
		GasTipCap:  copyBig(tx.GasTipCap),
		GasFeeCap:  copyBig(tx.GasFeeCap),
		To:         copyAddressP(tx.To),
		Value:      copyBig(tx.Value),
		Data:       common.CopyBytes(tx.Data),
		AccessList: tx.AccessList.copy(),
	}
}
func (tx *DynamicFeeTx) fieldRefs(h *txHeader) []interface{} {
	return []interface{}{&h.ChainID, &h.Nonce, &tx.GasTipCap, &tx.GasFeeCap, &h.Gas, &tx.To, &tx.Value, &tx.Data, &tx.AccessList}
}
func (tx *DynamicFeeTx) validate() error {
	return checkNonNegative("maxPriorityFeePerGas", tx.GasTipCap, "maxFeePerGas", tx.GasFeeCap, "value", tx.Value)
}

// newTxData returns an empty payload of type t to decode into.
func newTxData(t TxType) (TxData, error) {
	switch t {
	case TxTypeLegacyTransaction:
		return new(LegacyTx), nil
	case TxTypeValueTransfer:
		return new(ValueTransferTx), nil
	case TxTypeValueTransferMemo:
		return new(ValueTransferMemoTx), nil
	case TxTypeAccountUpdate:
		return new(AccountUpdateTx), nil
	case TxTypeSmartContractDeploy:
		return new(SmartContractDeployTx), nil
	case TxTypeSmartContractExecution:
		return new(SmartContractExecutionTx), nil
	case TxTypeCancel:
		return new(CancelTx), nil
	case TxTypeChainDataAnchoring:
		return new(ChainDataAnchoringTx), nil
	case TxTypeEthereumAccessList:
		return new(AccessListTx), nil
	case TxTypeEthereumDynamicFee:
		return new(DynamicFeeTx), nil
	default:
		return nil, ErrTxTypeNotSupported
	}
}

// fieldValues turns the references of fieldRefs into values for the encoder.
func fieldValues(refs []interface{}) []interface{} {
	vals := make([]interface{}, len(refs))
	for i, ref := range refs {
		switch r := ref.(type) {
		case **big.Int:
			if *r == nil {
				vals[i] = new(big.Int)
			} else {
				vals[i] = *r
			}
		case **common.Address:
			if *r == nil {
				vals[i] = []byte{}
			} else {
				vals[i] = *r
			}
		default:
			vals[i] = ref
		}
	}
	return vals
}

// decodeField decodes one raw list element into the field behind ref.
func decodeField(raw rlp.RawValue, ref interface{}) error {
	if r, ok := ref.(**common.Address); ok {
		if bytes.Equal(raw, emptyStringRLP) {
			*r = nil
			return nil
		}
		addr := new(common.Address)
		if err := rlp.DecodeBytes(raw, addr); err != nil {
			return err
		}
		*r = addr
		return nil
	}
	return rlp.DecodeBytes(raw, ref)
}

// equalTxData compares the type specific fields of a and b.
func equalTxData(a, b TxData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.TxType() != b.TxType() {
		return false
	}
	ea, err := rlp.EncodeToBytes(fieldValues(a.fieldRefs(new(txHeader))))
	if err != nil {
		return false
	}
	eb, err := rlp.EncodeToBytes(fieldValues(b.fieldRefs(new(txHeader))))
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

var emptyStringRLP = []byte{0x80}

func checkNonNegative(namesAndValues ...interface{}) error {
	for i := 0; i+1 < len(namesAndValues); i += 2 {
		name, _ := namesAndValues[i].(string)
		v, _ := namesAndValues[i+1].(*big.Int)
		if v != nil && v.Sign() < 0 {
			return validationErr("%s must not be negative", name)
		}
	}
	return nil
}

func copyBig(b *big.Int) *big.Int {
	if b == nil {
		return nil
	}
	return new(big.Int).Set(b)
}

func copyAddressP(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}
