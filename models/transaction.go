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
	"encoding/json"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/hexutil"
)

// TxConfig holds the fields shared by every transaction type, in their hex string
// form. Nonce and ChainID may be left empty (or "0x") to be filled before signing.
type TxConfig struct {
	From       string
	Nonce      string
	Gas        string
	ChainID    string
	Signatures []SignatureData
}

// Transaction is an immutable transaction value. Every "setter" returns a new
// instance and leaves the receiver untouched, so an instance may be shared between
// goroutines freely.
type Transaction struct {
	inner   TxData
	from    common.Address
	nonce   Quantity
	gas     Quantity
	chainID Quantity
	sigs    Signatures

	// caches
	sigHash atomic.Value
	hash    atomic.Value
}

// NewTransaction validates cfg against the type of data and creates the transaction.
func NewTransaction(cfg TxConfig, data TxData) (*Transaction, error) {
	if data == nil {
		return nil, validationErr("transaction data is missing")
	}
	t := data.TxType()
	if !t.Valid() {
		return nil, ErrTxTypeNotSupported
	}
	from, err := parseFrom(t, cfg.From)
	if err != nil {
		return nil, err
	}
	gas, err := parseGas(cfg.Gas)
	if err != nil {
		return nil, err
	}
	nonce, err := parseOptional("nonce", cfg.Nonce)
	if err != nil {
		return nil, err
	}
	chainID, err := parseOptional("chainId", cfg.ChainID)
	if err != nil {
		return nil, err
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	sigs, err := t.RefineSignatures(cfg.Signatures)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		inner:   data.copy(),
		from:    from,
		nonce:   nonce,
		gas:     gas,
		chainID: chainID,
		sigs:    sigs,
	}, nil
}

// MustTransaction is like NewTransaction but panics on invalid input.
func MustTransaction(cfg TxConfig, data TxData) *Transaction {
	tx, err := NewTransaction(cfg, data)
	if err != nil {
		panic(err)
	}
	return tx
}

func parseFrom(t TxType, s string) (common.Address, error) {
	if t.IsEthereum() && (s == "" || s == "0x") {
		return common.Address{}, nil
	}
	if s == "" {
		return common.Address{}, validationErr("from is missing")
	}
	return ParseAddress(s)
}

// ParseAddress parses a 0x prefixed 20 byte hex address of any letter case.
func ParseAddress(s string) (common.Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, validationErr("invalid address %q: %v", s, err)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, validationErr("invalid address %q: length %d", s, len(b))
	}
	return common.BytesToAddress(b), nil
}

// AddressString returns the 0x prefixed lower case form of addr.
func AddressString(addr common.Address) string {
	return hexutil.Encode(addr[:])
}

func parseGas(s string) (Quantity, error) {
	if s == "" || s == string(UnsetQuantity) {
		return UnsetQuantity, validationErr("gas is missing")
	}
	q, err := ParseQuantity(s)
	if err != nil {
		return UnsetQuantity, err
	}
	if q == "0x0" {
		return UnsetQuantity, validationErr("gas must be positive")
	}
	return q, nil
}

func parseOptional(name, s string) (Quantity, error) {
	q, err := ParseQuantity(s)
	if err != nil {
		return UnsetQuantity, validationErr("invalid %s %q", name, s)
	}
	return q, nil
}

// clone returns a shallow copy with fresh caches. Fields are either immutable or
// replaced as a whole by the callers.
func (tx *Transaction) clone() *Transaction {
	return &Transaction{
		inner:   tx.inner,
		from:    tx.from,
		nonce:   tx.nonce,
		gas:     tx.gas,
		chainID: tx.chainID,
		sigs:    tx.sigs,
	}
}

func (tx *Transaction) Type() TxType           { return tx.inner.TxType() }
func (tx *Transaction) From() common.Address   { return tx.from }
func (tx *Transaction) Nonce() Quantity        { return tx.nonce }
func (tx *Transaction) Gas() Quantity          { return tx.gas }
func (tx *Transaction) ChainID() Quantity      { return tx.chainID }
func (tx *Transaction) Signatures() Signatures { return tx.sigs.Clone() }

// Data returns a copy of the type specific fields.
func (tx *Transaction) Data() TxData { return tx.inner.copy() }

// HasFrom reports whether a sender is set, only ethereum types may have none.
func (tx *Transaction) HasFrom() bool { return tx.from != (common.Address{}) }

// To returns the recipient, nil for types without one or for contract creation.
func (tx *Transaction) To() *common.Address {
	switch d := tx.inner.(type) {
	case *LegacyTx:
		return copyAddressP(d.To)
	case *ValueTransferTx:
		return copyAddressP(&d.To)
	case *ValueTransferMemoTx:
		return copyAddressP(&d.To)
	case *SmartContractDeployTx:
		return copyAddressP(d.To)
	case *SmartContractExecutionTx:
		return copyAddressP(&d.To)
	case *AccessListTx:
		return copyAddressP(d.To)
	case *DynamicFeeTx:
		return copyAddressP(d.To)
	default:
		return nil
	}
}

// Value returns the transferred amount, nil for types without one.
func (tx *Transaction) Value() *big.Int {
	switch d := tx.inner.(type) {
	case *LegacyTx:
		return copyBig(d.Value)
	case *ValueTransferTx:
		return copyBig(d.Value)
	case *ValueTransferMemoTx:
		return copyBig(d.Value)
	case *SmartContractDeployTx:
		return copyBig(d.Value)
	case *SmartContractExecutionTx:
		return copyBig(d.Value)
	case *AccessListTx:
		return copyBig(d.Value)
	case *DynamicFeeTx:
		return copyBig(d.Value)
	default:
		return nil
	}
}

// GasPrice returns the gas price, the fee cap for dynamic fee transactions.
func (tx *Transaction) GasPrice() *big.Int {
	switch d := tx.inner.(type) {
	case *LegacyTx:
		return copyBig(d.GasPrice)
	case *ValueTransferTx:
		return copyBig(d.GasPrice)
	case *ValueTransferMemoTx:
		return copyBig(d.GasPrice)
	case *AccountUpdateTx:
		return copyBig(d.GasPrice)
	case *SmartContractDeployTx:
		return copyBig(d.GasPrice)
	case *SmartContractExecutionTx:
		return copyBig(d.GasPrice)
	case *CancelTx:
		return copyBig(d.GasPrice)
	case *ChainDataAnchoringTx:
		return copyBig(d.GasPrice)
	case *AccessListTx:
		return copyBig(d.GasPrice)
	case *DynamicFeeTx:
		return copyBig(d.GasFeeCap)
	default:
		return nil
	}
}

// Input returns the call data (memo, contract code or anchored data).
func (tx *Transaction) Input() []byte {
	switch d := tx.inner.(type) {
	case *LegacyTx:
		return common.CopyBytes(d.Input)
	case *ValueTransferMemoTx:
		return common.CopyBytes(d.Input)
	case *SmartContractDeployTx:
		return common.CopyBytes(d.Input)
	case *SmartContractExecutionTx:
		return common.CopyBytes(d.Input)
	case *ChainDataAnchoringTx:
		return common.CopyBytes(d.AnchoredData)
	case *AccessListTx:
		return common.CopyBytes(d.Data)
	case *DynamicFeeTx:
		return common.CopyBytes(d.Data)
	default:
		return nil
	}
}

// WithFrom returns a copy with the sender replaced.
func (tx *Transaction) WithFrom(from string) (*Transaction, error) {
	addr, err := parseFrom(tx.Type(), from)
	if err != nil {
		return nil, err
	}
	cpy := tx.clone()
	cpy.from = addr
	return cpy, nil
}

func (tx *Transaction) withFromAddress(addr common.Address) *Transaction {
	cpy := tx.clone()
	cpy.from = addr
	return cpy
}

// WithNonce returns a copy with the nonce replaced, "0x" unsets it.
func (tx *Transaction) WithNonce(nonce string) (*Transaction, error) {
	q, err := parseOptional("nonce", nonce)
	if err != nil {
		return nil, err
	}
	cpy := tx.clone()
	cpy.nonce = q
	return cpy, nil
}

// WithGas returns a copy with the gas limit replaced, it cannot be unset.
func (tx *Transaction) WithGas(gas string) (*Transaction, error) {
	q, err := parseGas(gas)
	if err != nil {
		return nil, err
	}
	cpy := tx.clone()
	cpy.gas = q
	return cpy, nil
}

// WithChainID returns a copy with the chain id replaced, "0x" unsets it.
func (tx *Transaction) WithChainID(chainID string) (*Transaction, error) {
	q, err := parseOptional("chainId", chainID)
	if err != nil {
		return nil, err
	}
	cpy := tx.clone()
	cpy.chainID = q
	return cpy, nil
}

// WithSignatures returns a copy whose signature list is replaced by the refined sigs.
func (tx *Transaction) WithSignatures(sigs ...SignatureData) (*Transaction, error) {
	refined, err := tx.Type().RefineSignatures(sigs)
	if err != nil {
		return nil, err
	}
	cpy := tx.clone()
	cpy.sigs = refined
	return cpy, nil
}

// AppendSignatures returns a copy with sigs appended to the current signatures and
// the result refined.
func (tx *Transaction) AppendSignatures(sigs ...SignatureData) (*Transaction, error) {
	all := make([]SignatureData, 0, len(tx.sigs)+len(sigs))
	all = append(all, tx.sigs...)
	all = append(all, sigs...)
	return tx.WithSignatures(all...)
}

// ValidateOptionalValues fails when the nonce, or the chain id if checkChainID is
// set, has not been filled.
func (tx *Transaction) ValidateOptionalValues(checkChainID bool) error {
	if tx.nonce.IsUnset() {
		return validationErr("nonce is undefined, define nonce in transaction or fill it from the network")
	}
	if checkChainID && tx.chainID.IsUnset() {
		return validationErr("chainId is undefined, define chainId in transaction or fill it from the network")
	}
	return nil
}

// CompareTxField reports whether tx and other agree on every non-signature field,
// and on the signatures too if checkSig is set.
func (tx *Transaction) CompareTxField(other *Transaction, checkSig bool) bool {
	if other == nil {
		return false
	}
	if tx.Type() != other.Type() {
		return false
	}
	if tx.from != other.from {
		return false
	}
	if !tx.nonce.Equal(other.nonce) || !tx.gas.Equal(other.gas) || !tx.chainID.Equal(other.chainID) {
		return false
	}
	if !equalTxData(tx.inner, other.inner) {
		return false
	}
	if checkSig && !tx.sigs.Equal(other.sigs) {
		return false
	}
	return true
}

func (tx *Transaction) header() *txHeader {
	return &txHeader{
		Nonce:   tx.nonce.rlpValue(),
		Gas:     tx.gas.rlpValue(),
		ChainID: tx.chainID.rlpValue(),
		From:    tx.from,
	}
}

func (tx *Transaction) String() string {
	if tx == nil {
		return "Tx<nil>"
	}
	return fmt.Sprintf("Tx{%s From:%s Nonce:%s Gas:%s ChainID:%s Sigs:%d}",
		tx.Type(), AddressString(tx.from), tx.nonce, tx.gas, tx.chainID, len(tx.sigs))
}

type txJSON struct {
	Type       string          `json:"type"`
	TypeInt    uint16          `json:"typeInt"`
	From       string          `json:"from"`
	To         *string         `json:"to,omitempty"`
	Nonce      string          `json:"nonce"`
	Gas        string          `json:"gas"`
	GasPrice   *string         `json:"gasPrice,omitempty"`
	Value      *string         `json:"value,omitempty"`
	Input      *string         `json:"input,omitempty"`
	ChainID    string          `json:"chainId"`
	Signatures Signatures      `json:"signatures"`
	Extra      json.RawMessage `json:"extra,omitempty"`
}

// MarshalJSON renders the transaction with hex encoded fields.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	j := txJSON{
		Type:       tx.Type().String(),
		TypeInt:    uint16(tx.Type()),
		From:       AddressString(tx.from),
		Nonce:      tx.nonce.String(),
		Gas:        tx.gas.String(),
		ChainID:    tx.chainID.String(),
		Signatures: tx.sigs,
	}
	if to := tx.To(); to != nil {
		s := AddressString(*to)
		j.To = &s
	}
	if gp := tx.GasPrice(); gp != nil {
		s := QuantityFromBig(gp).String()
		j.GasPrice = &s
	}
	if v := tx.Value(); v != nil {
		s := QuantityFromBig(v).String()
		j.Value = &s
	}
	if in := tx.Input(); in != nil {
		s := encodeHexValue(in)
		j.Input = &s
	}
	extra, err := tx.extraJSON()
	if err != nil {
		return nil, err
	}
	j.Extra = extra
	return json.Marshal(j)
}

func (tx *Transaction) extraJSON() (json.RawMessage, error) {
	switch d := tx.inner.(type) {
	case *AccountUpdateTx:
		return json.Marshal(map[string]string{"rlpEncodedKey": encodeHexValue(d.AccountKey)})
	case *SmartContractDeployTx:
		return json.Marshal(map[string]interface{}{
			"humanReadable": d.HumanReadable,
			"codeFormat":    QuantityFromBig(d.CodeFormat).String(),
		})
	case *AccessListTx:
		return json.Marshal(map[string]interface{}{"accessList": nonNilAccessList(d.AccessList)})
	case *DynamicFeeTx:
		return json.Marshal(map[string]interface{}{
			"maxPriorityFeePerGas": QuantityFromBig(d.GasTipCap).String(),
			"accessList":           nonNilAccessList(d.AccessList),
		})
	default:
		return nil, nil
	}
}

func nonNilAccessList(al AccessList) AccessList {
	if al == nil {
		return AccessList{}
	}
	return al
}
