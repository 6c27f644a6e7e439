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
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/spf13/cobra"
)

func parseHashArg(s string) (common.Hash, error) {
	b, err := parseBytesFlag("hash", s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(b))
	}
	return common.BytesToHash(b), nil
}

func newPoolCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "pool",
		Short: "Collect the signatures of a multi-signature transaction",
		Long: `The signature pool files raw transactions by the hash their signers sign, so
each party of a multi-signature account adds its own signature and anyone may
combine them once enough signatures are collected.`,
	}
	c.AddCommand(newPoolPutCmd(), newPoolListCmd(), newPoolCombineCmd(), newPoolDeleteCmd())
	return c
}

func newPoolPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <raw>...",
		Short: "File signed raw transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			pool, err := rc.Pool()
			if err != nil {
				return err
			}
			for _, a := range args {
				raw, err := parseBytesFlag("raw transaction", a)
				if err != nil {
					return err
				}
				h, err := pool.Put(cmd.Context(), raw)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h.Hex())
			}
			return nil
		}),
	}
}

type poolEntry struct {
	Received string   `json:"received"`
	Signers  []string `json:"signers"`
	Raw      string   `json:"raw"`
}

func newPoolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <sighash>",
		Short: "Show the raw transactions filed under a hash",
		Args:  cobra.ExactArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			h, err := parseHashArg(args[0])
			if err != nil {
				return err
			}
			pool, err := rc.Pool()
			if err != nil {
				return err
			}
			records, err := pool.Records(cmd.Context(), h)
			if err != nil {
				return err
			}
			entries := make([]*poolEntry, 0, len(records))
			for _, r := range records {
				e := &poolEntry{
					Received: time.Unix(int64(r.Received), 0).UTC().Format(time.RFC3339),
					Raw:      fmt.Sprintf("0x%x", r.Raw),
				}
				if tx, err := models.DecodeRaw(r.Raw); err == nil {
					if addrs, err := models.RecoverAddresses(tx); err == nil {
						for _, a := range addrs {
							e.Signers = append(e.Signers, models.AddressString(a))
						}
					}
				}
				entries = append(entries, e)
			}
			return printJSON(cmd.OutOrStdout(), entries)
		}),
	}
}

func newPoolCombineCmd() *cobra.Command {
	var send, keep bool
	c := &cobra.Command{
		Use:   "combine <sighash>",
		Short: "Combine the signatures filed under a hash",
		Args:  cobra.ExactArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			h, err := parseHashArg(args[0])
			if err != nil {
				return err
			}
			pool, err := rc.Pool()
			if err != nil {
				return err
			}
			tx, err := pool.Combine(cmd.Context(), h)
			if err != nil {
				return err
			}
			if err := outputSigned(cmd, rc, tx, false, send, false); err != nil {
				return err
			}
			if send && !keep {
				return pool.Delete(cmd.Context(), h)
			}
			return nil
		}),
	}
	c.Flags().BoolVar(&send, "send", false, "broadcast the combined transaction")
	c.Flags().BoolVar(&keep, "keep", false, "keep the entries after a successful broadcast")
	return c
}

func newPoolDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sighash>",
		Short: "Drop the raw transactions filed under a hash",
		Args:  cobra.ExactArgs(1),
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			h, err := parseHashArg(args[0])
			if err != nil {
				return err
			}
			pool, err := rc.Pool()
			if err != nil {
				return err
			}
			return pool.Delete(cmd.Context(), h)
		}),
	}
}
