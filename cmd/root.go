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
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ThinkiumGroup/go-txsign/consts"
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagLogLevel   string
)

// NewRootCmd builds the command tree, every call returns fresh commands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "txsign",
		Short: "Build, sign, combine and send transactions",
		Long: `txsign builds transactions of the native and the ethereum compatible types,
signs them with the keyrings of the config file, collects the signatures of
multi-signature accounts in a signature pool, and broadcasts the result to the
configured nodes.

Nonce and chain id are read from the nodes when they are not given.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flagConfigPath, "conf", "c", consts.DefaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "", "overrides the log level of the config file")

	root.AddCommand(
		newSignCmd(),
		newDecodeCmd(),
		newRecoverCmd(),
		newCombineCmd(),
		newSendCmd(),
		newPoolCmd(),
		newGenKeyCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line, ctx is canceled on interruption.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// withRunContext loads the config before running f and releases it afterwards.
func withRunContext(f func(cmd *cobra.Command, rc RunContext, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(flagConfigPath, flagLogLevel)
		if err != nil {
			return err
		}
		defer rc.Close()
		return f(cmd, rc, args)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show txsign version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", consts.Version)
		},
	}
}
