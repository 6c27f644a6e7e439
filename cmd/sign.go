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
	"errors"
	"fmt"

	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/keyring"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/spf13/cobra"
)

type signFlags struct {
	tx      txFlags
	key     string
	index   int
	toPool  bool
	send    bool
	verbose bool
}

// signer picks the keyring: the key given on the command line, or the configured
// keyring of the sender.
func (f *signFlags) signer(rc RunContext, tx *models.Transaction) (models.Keyring, error) {
	if f.key != "" {
		key, err := keyring.NewPrivateKey(f.key)
		if err != nil {
			return nil, err
		}
		addr := key.Address()
		if tx.HasFrom() {
			addr = tx.From()
		}
		return keyring.NewSingleKeyring(addr, key), nil
	}
	if !tx.HasFrom() {
		return nil, errors.New("either --key or --from of a configured keyring is needed")
	}
	kr, ok := rc.Keyrings().Get(tx.From())
	if !ok {
		return nil, fmt.Errorf("%w: %s", keyring.ErrKeyringNotFound, models.AddressString(tx.From()))
	}
	return kr, nil
}

func newSignCmd() *cobra.Command {
	f := new(signFlags)
	c := &cobra.Command{
		Use:   "sign",
		Short: "Build and sign a transaction",
		Long: `Builds the transaction from the flags and signs it. The nonce and the chain id
are read from the configured nodes when not given. Prints the raw transaction.

Signers of a multi-signature account sign the same transaction each with their own
key and file the result in the signature pool with --pool, or exchange the raw
transactions and merge them with the combine command.`,
		Args: cobra.NoArgs,
		RunE: withRunContext(func(cmd *cobra.Command, rc RunContext, args []string) error {
			tx, err := buildTransaction(&f.tx)
			if err != nil {
				return err
			}
			kr, err := f.signer(rc, tx)
			if err != nil {
				return err
			}
			var opts []models.SignOption
			if reader, err := rc.Reader(); err == nil {
				opts = append(opts, models.WithChainReader(reader))
			} else {
				log.Debugf("[CMD] sign without chain reader: %v", err)
			}
			ctx := cmd.Context()
			var signed *models.Transaction
			if f.index < 0 {
				signed, err = models.Sign(ctx, tx, kr, opts...)
			} else {
				signed, err = models.SignWithIndex(ctx, tx, kr, f.index, opts...)
			}
			if err != nil {
				return err
			}
			return outputSigned(cmd, rc, signed, f.toPool, f.send, f.verbose)
		}),
	}
	f.tx.register(c)
	c.Flags().StringVarP(&f.key, "key", "k", "", "0x prefixed private key, the configured keyring of --from is used if empty")
	c.Flags().IntVar(&f.index, "index", -1, "sign with the key at this index of the keyring only, all keys if negative")
	c.Flags().BoolVar(&f.toPool, "pool", false, "file the signed transaction in the signature pool")
	c.Flags().BoolVar(&f.send, "send", false, "broadcast the signed transaction to the configured nodes")
	c.Flags().BoolVar(&f.verbose, "verbose", false, "print the decoded transaction too")
	return c
}

// outputSigned prints the raw encoding of tx, then files or broadcasts it.
func outputSigned(cmd *cobra.Command, rc RunContext, tx *models.Transaction, toPool, send, verbose bool) error {
	raw, err := tx.RawTransaction()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if verbose {
		if err := printJSON(out, tx); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, raw)

	if toPool {
		pool, err := rc.Pool()
		if err != nil {
			return err
		}
		enc, err := tx.RawEncoding()
		if err != nil {
			return err
		}
		h, err := pool.Put(cmd.Context(), enc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "filed under %s\n", h.Hex())
	}
	if send {
		reader, err := rc.Reader()
		if err != nil {
			return err
		}
		h, err := reader.Broadcast(cmd.Context(), raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "sent %s\n", h.Hex())
	}
	return nil
}
