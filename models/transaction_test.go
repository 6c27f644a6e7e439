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
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ThinkiumGroup/go-common"
)

const (
	testFrom = "0xa94f5374Fce5edBC8E2a8697C15331677e6EbF0B"
	testTo   = "0x7b65B75d204aBed71587c9E519a89277766EE1d0"
)

func testValueTransfer(t *testing.T) *Transaction {
	to, err := ParseAddress(testTo)
	if err != nil {
		t.Fatalf("parse address failed: %v", err)
	}
	tx, err := NewTransaction(TxConfig{
		From:    testFrom,
		Nonce:   "0x4d2",
		Gas:     "0xf4240",
		ChainID: "0x1",
	}, &ValueTransferTx{GasPrice: big.NewInt(25), To: to, Value: big.NewInt(10)})
	if err != nil {
		t.Fatalf("create value transfer failed: %v", err)
	}
	return tx
}

func TestNewTransactionValidation(t *testing.T) {
	data := &CancelTx{GasPrice: big.NewInt(25)}
	cases := []struct {
		name string
		cfg  TxConfig
		ok   bool
	}{
		{"valid", TxConfig{From: testFrom, Gas: "0x9c40"}, true},
		{"gas unset", TxConfig{From: testFrom, Gas: "0x"}, false},
		{"gas missing", TxConfig{From: testFrom}, false},
		{"gas not hex", TxConfig{From: testFrom, Gas: "40000"}, false},
		{"gas zero", TxConfig{From: testFrom, Gas: "0x0"}, false},
		{"gas leading zeros", TxConfig{From: testFrom, Gas: "0x009c40"}, true},
		{"from missing", TxConfig{Gas: "0x9c40"}, false},
		{"from too short", TxConfig{From: "0xa94f5374", Gas: "0x9c40"}, false},
		{"nonce sentinel", TxConfig{From: testFrom, Gas: "0x9c40", Nonce: "0x"}, true},
		{"nonce invalid", TxConfig{From: testFrom, Gas: "0x9c40", Nonce: "0xzz"}, false},
		{"chain id too large", TxConfig{From: testFrom, Gas: "0x9c40", ChainID: "0x1" + strings.Repeat("0", 64)}, false},
	}
	for _, c := range cases {
		_, err := NewTransaction(c.cfg, data)
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: want validation error, got %v", c.name, err)
		}
	}
}

func TestSetters(t *testing.T) {
	tx := testValueTransfer(t)

	if _, err := tx.WithGas("0x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("setting gas to 0x: want validation error, got %v", err)
	}
	if tx.Gas() != "0xf4240" {
		t.Fatalf("failed setter changed gas to %s", tx.Gas())
	}

	unset, err := tx.WithNonce("0x")
	if err != nil {
		t.Fatalf("setting nonce to 0x failed: %v", err)
	}
	if !unset.Nonce().IsUnset() {
		t.Fatalf("nonce should be unset, got %s", unset.Nonce())
	}
	if tx.Nonce() != "0x4d2" {
		t.Fatalf("receiver changed: nonce %s", tx.Nonce())
	}

	padded, err := tx.WithChainID("0x0003E9")
	if err != nil {
		t.Fatalf("set chain id failed: %v", err)
	}
	if padded.ChainID() != "0x3e9" {
		t.Fatalf("chain id should be canonical, got %s", padded.ChainID())
	}

	if _, err := tx.WithFrom(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("native type without from: want validation error, got %v", err)
	}
}

func TestEthereumFromMayBeEmpty(t *testing.T) {
	for _, from := range []string{"", "0x", "0x0000000000000000000000000000000000000000"} {
		tx, err := NewTransaction(TxConfig{From: from, Gas: "0x5208"}, &LegacyTx{GasPrice: big.NewInt(1)})
		if err != nil {
			t.Fatalf("legacy with from %q failed: %v", from, err)
		}
		if tx.HasFrom() {
			t.Fatalf("from %q should normalise to the zero address", from)
		}
	}
}

func TestCompareTxField(t *testing.T) {
	tx := testValueTransfer(t)
	same := testValueTransfer(t)
	if !tx.CompareTxField(same, true) {
		t.Fatal("identical transactions should compare equal")
	}

	lower, err := tx.WithFrom(strings.ToLower(testFrom))
	if err != nil {
		t.Fatal(err)
	}
	if !tx.CompareTxField(lower, true) {
		t.Fatal("address comparison should ignore letter case")
	}

	other, _ := tx.WithNonce("0x4d3")
	if tx.CompareTxField(other, false) {
		t.Fatal("different nonce should not compare equal")
	}

	data := tx.Data().(*ValueTransferTx)
	data.Value = big.NewInt(11)
	changed, err := NewTransaction(TxConfig{From: testFrom, Nonce: "0x4d2", Gas: "0xf4240", ChainID: "0x1"}, data)
	if err != nil {
		t.Fatal(err)
	}
	if tx.CompareTxField(changed, false) {
		t.Fatal("different value should not compare equal")
	}

	signed, err := tx.AppendSignatures(NewSignatureData(big.NewInt(37), big.NewInt(1), big.NewInt(2)))
	if err != nil {
		t.Fatal(err)
	}
	if !tx.CompareTxField(signed, false) || tx.CompareTxField(signed, true) {
		t.Fatal("signatures should only be compared when checkSig is set")
	}
}

func TestValidateOptionalValues(t *testing.T) {
	tx := testValueTransfer(t)
	if err := tx.ValidateOptionalValues(true); err != nil {
		t.Fatalf("filled transaction: %v", err)
	}
	noChain, _ := tx.WithChainID("0x")
	if err := noChain.ValidateOptionalValues(false); err != nil {
		t.Fatalf("chain id should not be checked: %v", err)
	}
	if err := noChain.ValidateOptionalValues(true); !errors.Is(err, ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	noNonce, _ := tx.WithNonce("")
	if err := noNonce.ValidateOptionalValues(false); !errors.Is(err, ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestDataIsCopied(t *testing.T) {
	input := []byte{1, 2, 3}
	data := &SmartContractExecutionTx{GasPrice: big.NewInt(25), To: common.BytesToAddress([]byte{1}), Value: big.NewInt(0), Input: input}
	tx, err := NewTransaction(TxConfig{From: testFrom, Gas: "0x9c40"}, data)
	if err != nil {
		t.Fatal(err)
	}
	input[0] = 9
	data.GasPrice.SetInt64(1)
	if got := tx.Input(); got[0] != 1 {
		t.Fatalf("input shared with caller: %x", got)
	}
	if tx.GasPrice().Int64() != 25 {
		t.Fatalf("gas price shared with caller: %s", tx.GasPrice())
	}
}

func TestTransactionJSON(t *testing.T) {
	tx := testValueTransfer(t)
	bs, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(bs, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "TxTypeValueTransfer" || m["typeInt"].(float64) != 8 {
		t.Fatalf("unexpected type fields in %s", bs)
	}
	if m["from"] != strings.ToLower(testFrom) || m["gasPrice"] != "0x19" || m["value"] != "0xa" {
		t.Fatalf("unexpected fields in %s", bs)
	}
	t.Logf("%s", bs)
}

func TestParseTxType(t *testing.T) {
	cases := map[string]TxType{
		"TxTypeValueTransfer":     TxTypeValueTransfer,
		"valuetransfer":           TxTypeValueTransfer,
		"ethereumdynamicfee":      TxTypeEthereumDynamicFee,
		"TXTYPELEGACYTRANSACTION": TxTypeLegacyTransaction,
		"0x7801":                  TxTypeEthereumAccessList,
		"72":                      TxTypeChainDataAnchoring,
	}
	for s, want := range cases {
		got, err := ParseTxType(s)
		if err != nil || got != want {
			t.Errorf("%s: got %s %v, want %s", s, got, err, want)
		}
	}
	for _, s := range []string{"", "transfer", "0x09", "0x10000"} {
		if _, err := ParseTxType(s); !errors.Is(err, ErrFormat) {
			t.Errorf("%s: want format error, got %v", s, err)
		}
	}
}

func TestAddressString(t *testing.T) {
	addr, err := ParseAddress(testFrom)
	if err != nil {
		t.Fatal(err)
	}
	if s := AddressString(addr); s != strings.ToLower(testFrom) {
		t.Fatalf("address string %s, want %s", s, strings.ToLower(testFrom))
	}
	tx := testValueTransfer(t)
	if _, err := tx.WithGas("0x0"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero gas: want validation error, got %v", err)
	}
	cpy, err := tx.WithGas("0x00ff")
	if err != nil || cpy.Gas() != "0xff" {
		t.Fatalf("gas with leading zeros: %v %s", err, cpy)
	}
}
