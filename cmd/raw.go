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

	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/spf13/cobra"
)

type decodedTx struct {
	Transaction  *models.Transaction `json:"transaction"`
	SigHash      string              `json:"sigHash"`
	Hash         string              `json:"hash,omitempty"`
	SenderTxHash string              `json:"senderTxHash,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <raw>",
		Short: "Decode a raw transaction and show its hashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := models.DecodeRawTransaction(args[0])
			if err != nil {
				return err
			}
			sigHash, err := tx.SigHash()
			if err != nil {
				return err
			}
			d := &decodedTx{Transaction: tx, SigHash: sigHash.Hex()}
			if h, err := tx.TransactionHash(); err == nil {
				d.Hash = h.Hex()
			}
			if h, err := tx.SenderTxHash(); err == nil {
				d.SenderTxHash = h.Hex()
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

type recovered struct {
	ChainID    string   `json:"chainId"`
	PublicKeys []string `json:"publicKeys"`
	Addresses  []string `json:"addresses"`
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover <raw>",
		Short: "Recover the signers of a raw transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := models.DecodeRawTransaction(args[0])
			if err != nil {
				return err
			}
			rec, err := models.RecoverPublicKeys(tx)
			if err != nil {
				return err
			}
			r := &recovered{ChainID: models.QuantityFromBig(rec.ChainID).String()}
			for _, pub := range rec.PublicKeys {
				addr, err := models.PublicKeyToAddress(pub)
				if err != nil {
					return err
				}
				r.PublicKeys = append(r.PublicKeys, fmt.Sprintf("0x%x", pub))
				r.Addresses = append(r.Addresses, models.AddressString(addr))
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
}

func newCombineCmd() *cobra.Command {
	var send bool
	c := &cobra.Command{
		Use:   "combine <raw> <raw>...",
		Short: "Merge the signatures of raw transactions signed by different keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			raws := make([][]byte, len(args))
			for i, a := range args {
				b, err := parseBytesFlag("raw transaction", a)
				if err != nil {
					return err
				}
				raws[i] = b
			}
			combined, err := models.CombineSignedRawTransactions(raws)
			if err != nil {
				return err
			}
			tx, err := models.DecodeRaw(combined)
			if err != nil {
				return err
			}
			return outputSigned(cmd, rc, tx, false, send, false)
		}),
	}
	c.Flags().BoolVar(&send, "send", false, "broadcast the combined transaction")
	return c
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <raw>",
		Short: "Broadcast a raw transaction to the configured nodes",
		Args:  cobra.ExactArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			tx, err := models.DecodeRawTransaction(args[0])
			if err != nil {
				return err
			}
			return outputSigned(cmd, rc, tx, false, true, false)
		}),
	}
}
