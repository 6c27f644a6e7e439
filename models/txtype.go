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
	"strconv"
	"strings"
)

type TxType uint16

const (
	TxTypeLegacyTransaction      TxType = 0x00
	TxTypeValueTransfer          TxType = 0x08
	TxTypeValueTransferMemo      TxType = 0x10
	TxTypeAccountUpdate          TxType = 0x20
	TxTypeSmartContractDeploy    TxType = 0x28
	TxTypeSmartContractExecution TxType = 0x30
	TxTypeCancel                 TxType = 0x38
	TxTypeChainDataAnchoring     TxType = 0x48
	TxTypeEthereumAccessList     TxType = 0x7801
	TxTypeEthereumDynamicFee     TxType = 0x7802
)

// EthereumTxTypeEnvelope is the first byte of the raw encoding of the ethereum typed transactions
const EthereumTxTypeEnvelope = 0x78

// Family groups transaction types by encoding and signature convention.
type Family uint8

const (
	// FamilyNative are the chain's own transaction types: the sign payload wraps the
	// type specific encoding, and more than one signature is allowed.
	FamilyNative Family = iota
	// FamilyEthereumLegacy is the ethereum compatible legacy transaction (EIP-155).
	FamilyEthereumLegacy
	// FamilyEthereumTyped are the EIP-2718 envelopes, v is the raw recovery parity.
	FamilyEthereumTyped
)

func (f Family) String() string {
	switch f {
	case FamilyNative:
		return "Native"
	case FamilyEthereumLegacy:
		return "EthereumLegacy"
	case FamilyEthereumTyped:
		return "EthereumTyped"
	default:
		return "Family-" + strconv.Itoa(int(f))
	}
}

// Role selects the key set of a multi-key account that produces a signature.
type Role int

const (
	RoleTransaction Role = iota
	RoleAccountUpdate
	RoleFeePayer
	RoleLength
)

func (r Role) String() string {
	switch r {
	case RoleTransaction:
		return "RoleTransaction"
	case RoleAccountUpdate:
		return "RoleAccountUpdate"
	case RoleFeePayer:
		return "RoleFeePayer"
	default:
		return "Role-" + strconv.Itoa(int(r))
	}
}

type typeTraits struct {
	name   string
	family Family
	role   Role
}

var txTypeTraits = map[TxType]typeTraits{
	TxTypeLegacyTransaction:      {"TxTypeLegacyTransaction", FamilyEthereumLegacy, RoleTransaction},
	TxTypeValueTransfer:          {"TxTypeValueTransfer", FamilyNative, RoleTransaction},
	TxTypeValueTransferMemo:      {"TxTypeValueTransferMemo", FamilyNative, RoleTransaction},
	TxTypeAccountUpdate:          {"TxTypeAccountUpdate", FamilyNative, RoleAccountUpdate},
	TxTypeSmartContractDeploy:    {"TxTypeSmartContractDeploy", FamilyNative, RoleTransaction},
	TxTypeSmartContractExecution: {"TxTypeSmartContractExecution", FamilyNative, RoleTransaction},
	TxTypeCancel:                 {"TxTypeCancel", FamilyNative, RoleTransaction},
	TxTypeChainDataAnchoring:     {"TxTypeChainDataAnchoring", FamilyNative, RoleTransaction},
	TxTypeEthereumAccessList:     {"TxTypeEthereumAccessList", FamilyEthereumTyped, RoleTransaction},
	TxTypeEthereumDynamicFee:     {"TxTypeEthereumDynamicFee", FamilyEthereumTyped, RoleTransaction},
}

func (t TxType) traits() (typeTraits, bool) {
	tr, ok := txTypeTraits[t]
	return tr, ok
}

func (t TxType) Valid() bool {
	_, ok := txTypeTraits[t]
	return ok
}

func (t TxType) String() string {
	if tr, ok := t.traits(); ok {
		return tr.name
	}
	return "TxType-" + strconv.Itoa(int(t))
}

func (t TxType) Family() Family {
	tr, _ := t.traits()
	return tr.family
}

// Role is the key role used to sign transactions of this type.
func (t TxType) Role() Role {
	tr, _ := t.traits()
	return tr.role
}

// IsEthereum reports whether the type is ethereum compatible: single signature,
// nullable sender, and no decoupled keys.
func (t TxType) IsEthereum() bool {
	f := t.Family()
	return f == FamilyEthereumLegacy || f == FamilyEthereumTyped
}

// IsEthereumTyped reports whether v of the signatures is the raw recovery parity.
func (t TxType) IsEthereumTyped() bool {
	return t.Family() == FamilyEthereumTyped
}

// AllowsMultiSig reports whether more than one signature may be attached.
func (t TxType) AllowsMultiSig() bool {
	return !t.IsEthereum()
}

// typeByte is the one byte type used in sign payloads and native raw encodings.
func (t TxType) typeByte() byte {
	return byte(t & 0xff)
}

// ParseTxType accepts the type name with or without its TxType prefix in any case,
// or the numeric type.
func ParseTxType(s string) (TxType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, tr := range txTypeTraits {
		full := strings.ToLower(tr.name)
		if name == full || name == strings.TrimPrefix(full, "txtype") {
			return t, nil
		}
	}
	if n, err := strconv.ParseUint(name, 0, 16); err == nil && TxType(n).Valid() {
		return TxType(n), nil
	}
	return 0, formatErr("unknown transaction type %q", s)
}
