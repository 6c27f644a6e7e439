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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-txsign/cmd"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	systemsignal := make(chan os.Signal, 1)
	signal.Notify(systemsignal, os.Interrupt)
	go func() {
		select {
		case ss := <-systemsignal:
			log.Warn("GOT A SYSTEM SIGNAL[", ss, "], CANCELING.")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := cmd.Execute(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
