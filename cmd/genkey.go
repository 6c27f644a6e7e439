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

	"github.com/ThinkiumGroup/go-txsign/keyring"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/spf13/cobra"
)

type generatedKey struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	Address    string `json:"address"`
}

func newGenKeyCmd() *cobra.Command {
	var count int
	c := &cobra.Command{
		Use:   "genkey",
		Short: "Generate key pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("invalid count %d", count)
			}
			keys := make([]*generatedKey, 0, count)
			for i := 0; i < count; i++ {
				key, err := keyring.GeneratePrivateKey()
				if err != nil {
					return err
				}
				keys = append(keys, &generatedKey{
					PrivateKey: key.Hex(),
					PublicKey:  fmt.Sprintf("0x%x", key.PublicKey()),
					Address:    models.AddressString(key.Address()),
				})
			}
			return printJSON(cmd.OutOrStdout(), keys)
		},
	}
	c.Flags().IntVar(&count, "count", 1, "number of keys")
	return c
}
