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

package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/hexutil"
	"github.com/ThinkiumGroup/go-txsign/consts"
	"github.com/ThinkiumGroup/go-txsign/keyring"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/spf13/cobra"
)

// txFlags are the transaction fields given on the command line.
type txFlags struct {
	txType        string
	from          string
	to            string
	value         string
	gasPrice      string
	gasTipCap     string
	gas           string
	nonce         string
	chainID       string
	input         string
	accountKey    string
	humanReadable bool
	codeFormat    uint64
}

func (f *txFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.txType, "type", "t", "valuetransfer", "transaction type, name or number, e.g. valuetransfer, legacytransaction, ethereumdynamicfee")
	fs.StringVarP(&f.from, "from", "f", "", "sender address, required by the native types")
	fs.StringVar(&f.to, "to", "", "recipient address, empty deploys a contract where allowed")
	fs.StringVarP(&f.value, "value", "v", "0", "value in peb, decimal or 0x prefixed hex")
	fs.StringVarP(&f.gasPrice, "gasprice", "p", consts.GasPrice, "gas price in peb, the fee cap of dynamic fee transactions")
	fs.StringVar(&f.gasTipCap, "gastip", "", "tip cap of dynamic fee transactions, defaults to the gas price")
	fs.StringVarP(&f.gas, "gas", "g", "", "gas limit in hex, defaults by transaction type")
	fs.StringVarP(&f.nonce, "nonce", "n", "", "nonce in hex, read from the nodes if empty")
	fs.StringVar(&f.chainID, "chainid", "", "chain id in hex, read from the nodes if empty")
	fs.StringVarP(&f.input, "input", "i", "", "hex encoded input: call data, code, memo or anchored data")
	fs.StringVar(&f.accountKey, "accountkey", "", "hex encoded new account key of account update transactions, defaults to the legacy key")
	fs.BoolVar(&f.humanReadable, "humanreadable", false, "human readable address of contract deployments")
	fs.Uint64Var(&f.codeFormat, "codeformat", 0, "code format of contract deployments")
}

func parseBigFlag(name, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func parseBytesFlag(name, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %v", name, s, err)
	}
	return b, nil
}

func parseToFlag(s string) (*common.Address, error) {
	if s == "" {
		return nil, nil
	}
	addr, err := models.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func defaultGas(t models.TxType) string {
	switch t {
	case models.TxTypeLegacyTransaction, models.TxTypeValueTransfer, models.TxTypeValueTransferMemo, models.TxTypeCancel:
		return models.QuantityFromUint64(consts.TransferGas).String()
	default:
		return models.QuantityFromUint64(consts.GasLimit).String()
	}
}

// buildTransaction creates the unsigned transaction described by f.
func buildTransaction(f *txFlags) (*models.Transaction, error) {
	t, err := models.ParseTxType(f.txType)
	if err != nil {
		return nil, err
	}
	gasPrice, err := parseBigFlag("gas price", f.gasPrice)
	if err != nil {
		return nil, err
	}
	value, err := parseBigFlag("value", f.value)
	if err != nil {
		return nil, err
	}
	input, err := parseBytesFlag("input", f.input)
	if err != nil {
		return nil, err
	}
	to, err := parseToFlag(f.to)
	if err != nil {
		return nil, err
	}
	needTo := func() (common.Address, error) {
		if to == nil {
			return common.Address{}, fmt.Errorf("%s needs a recipient", t)
		}
		return *to, nil
	}

	var data models.TxData
	switch t {
	case models.TxTypeLegacyTransaction:
		data = &models.LegacyTx{GasPrice: gasPrice, To: to, Value: value, Input: input}
	case models.TxTypeValueTransfer:
		recipient, err := needTo()
		if err != nil {
			return nil, err
		}
		data = &models.ValueTransferTx{GasPrice: gasPrice, To: recipient, Value: value}
	case models.TxTypeValueTransferMemo:
		recipient, err := needTo()
		if err != nil {
			return nil, err
		}
		data = &models.ValueTransferMemoTx{GasPrice: gasPrice, To: recipient, Value: value, Input: input}
	case models.TxTypeAccountUpdate:
		key, err := parseBytesFlag("account key", f.accountKey)
		if err != nil {
			return nil, err
		}
		if key == nil {
			key = keyring.LegacyAccountKey()
		}
		data = &models.AccountUpdateTx{GasPrice: gasPrice, AccountKey: key}
	case models.TxTypeSmartContractDeploy:
		data = &models.SmartContractDeployTx{GasPrice: gasPrice, To: to, Value: value, Input: input,
			HumanReadable: f.humanReadable, CodeFormat: new(big.Int).SetUint64(f.codeFormat)}
	case models.TxTypeSmartContractExecution:
		recipient, err := needTo()
		if err != nil {
			return nil, err
		}
		data = &models.SmartContractExecutionTx{GasPrice: gasPrice, To: recipient, Value: value, Input: input}
	case models.TxTypeCancel:
		data = &models.CancelTx{GasPrice: gasPrice}
	case models.TxTypeChainDataAnchoring:
		data = &models.ChainDataAnchoringTx{GasPrice: gasPrice, AnchoredData: input}
	case models.TxTypeEthereumAccessList:
		data = &models.AccessListTx{GasPrice: gasPrice, To: to, Value: value, Data: input}
	case models.TxTypeEthereumDynamicFee:
		tip, err := parseBigFlag("gas tip", f.gasTipCap)
		if err != nil {
			return nil, err
		}
		if tip == nil && gasPrice != nil {
			tip = new(big.Int).Set(gasPrice)
		}
		data = &models.DynamicFeeTx{GasTipCap: tip, GasFeeCap: gasPrice, To: to, Value: value, Data: input}
	default:
		return nil, models.ErrTxTypeNotSupported
	}

	gas := f.gas
	if gas == "" {
		gas = defaultGas(t)
	}
	return models.NewTransaction(models.TxConfig{
		From:    f.from,
		Nonce:   f.nonce,
		Gas:     gas,
		ChainID: f.chainID,
	}, data)
}
