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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ThinkiumGroup/go-txsign/consts"
	"github.com/ThinkiumGroup/go-txsign/models"
)

const (
	key1     = "0x4646464646464646464646464646464646464646464646464646464646464646"
	key1Addr = "0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f"
	key2     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testTo   = "0x7b65b75d204abed71587c9e519a89277766ee1d0"
)

func run(t *testing.T, args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func lines(out string) []string {
	return strings.Split(strings.TrimSpace(out), "\n")
}

func TestBuildTransaction(t *testing.T) {
	tx, err := buildTransaction(&txFlags{txType: "valuetransfer", from: key1Addr, to: testTo, value: "0x10", gasPrice: consts.GasPrice})
	if err != nil {
		t.Fatalf("build value transfer failed: %v", err)
	}
	if tx.Type() != models.TxTypeValueTransfer || tx.Gas() != models.MustQuantity("0x5208") {
		t.Errorf("unexpected transaction %s", tx)
	}
	if !tx.Nonce().IsUnset() || tx.Value().Int64() != 16 {
		t.Errorf("unexpected nonce or value in %s", tx)
	}

	tx, err = buildTransaction(&txFlags{txType: "accountupdate", from: key1Addr, gasPrice: "1"})
	if err != nil {
		t.Fatalf("build account update failed: %v", err)
	}
	if tx.Type() != models.TxTypeAccountUpdate || tx.Gas() != models.QuantityFromUint64(consts.GasLimit) {
		t.Errorf("unexpected transaction %s", tx)
	}

	tx, err = buildTransaction(&txFlags{txType: "ethereumdynamicfee", gasPrice: "100", gas: "0x5208"})
	if err != nil {
		t.Fatalf("build dynamic fee failed: %v", err)
	}
	if tx.GasPrice().Int64() != 100 {
		t.Errorf("gas price %s, want 100", tx.GasPrice())
	}

	bad := map[string]*txFlags{
		"value transfer without recipient": {txType: "valuetransfer", from: key1Addr},
		"unknown type":                     {txType: "nosuchtype"},
		"value not a number":               {txType: "legacytransaction", value: "ten"},
	}
	for name, f := range bad {
		if _, err := buildTransaction(f); err == nil {
			t.Errorf("%s: should fail", name)
		}
	}
}

func TestSignDecodeRecover(t *testing.T) {
	out, err := run(t, "sign", "--type", "legacytransaction", "--key", key1,
		"--to", testTo, "--value", "10", "--nonce", "0x0", "--chainid", "0x1")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	raw := lines(out)[0]
	if !strings.HasPrefix(raw, "0x") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "decode", raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if decoded["sigHash"] == "" || decoded["sigHash"] == nil || decoded["hash"] == nil {
		t.Errorf("hashes missing in %q", out)
	}

	out, err = run(t, "recover", raw)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	var rec recovered
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("recover output %q: %v", out, err)
	}
	if rec.ChainID != "0x1" || len(rec.Addresses) != 1 || rec.Addresses[0] != key1Addr {
		t.Errorf("recovered %+v", rec)
	}

	if _, err := run(t, "recover", "0x1234"); err == nil {
		t.Error("garbage should not recover")
	}
}

func TestSignNeedsNonce(t *testing.T) {
	if _, err := run(t, "sign", "--key", key1, "--from", key1Addr, "--to", testTo, "--chainid", "0x1"); err == nil {
		t.Fatal("no nonce and no nodes to read it from should fail")
	}
}

func TestMultiSigPool(t *testing.T) {
	dir, err := ioutil.TempDir("", "txsigncmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	conf := filepath.Join(dir, "txsign.yaml")
	if err := ioutil.WriteFile(conf, []byte(fmt.Sprintf(`
keys:
  - keys: ["%s", "%s"]
pool:
  path: "%s"
`, key1, key2, filepath.Join(dir, "pool"))), 0600); err != nil {
		t.Fatal(err)
	}

	var hash string
	for i := 0; i < 2; i++ {
		out, err := run(t, "sign", "--conf", conf, "--from", key1Addr, "--to", testTo,
			"--nonce", "0x1", "--chainid", "0x3e9", "--index", fmt.Sprint(i), "--pool")
		if err != nil {
			t.Fatalf("sign with key %d failed: %v", i, err)
		}
		ls := lines(out)
		if len(ls) != 2 {
			t.Fatalf("unexpected output %q", out)
		}
		h := strings.TrimPrefix(ls[1], "filed under ")
		if hash != "" && hash != h {
			t.Fatalf("both signers should file under the same hash, got %s and %s", hash, h)
		}
		hash = h
	}

	out, err := run(t, "pool", "list", "--conf", conf, hash)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var entries []*poolEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("list output %q: %v", out, err)
	}
	if len(entries) != 2 {
		t.Fatalf("%d entries, want 2", len(entries))
	}

	out, err = run(t, "pool", "combine", "--conf", conf, hash)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	combined := lines(out)[0]

	out, err = run(t, "recover", combined)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	var rec recovered
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.Addresses) != 2 || (rec.Addresses[0] != key1Addr && rec.Addresses[1] != key1Addr) {
		t.Fatalf("recovered %v", rec.Addresses)
	}

	if _, err := run(t, "pool", "delete", "--conf", conf, hash); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := run(t, "pool", "combine", "--conf", conf, hash); err == nil {
		t.Error("combine after delete should fail")
	}
	if _, err := run(t, "send", "--conf", conf, combined); err == nil {
		t.Error("send without nodes should fail")
	}
}

func TestGenKeyAndVersion(t *testing.T) {
	out, err := run(t, "genkey", "--count", "2")
	if err != nil {
		t.Fatalf("genkey failed: %v", err)
	}
	var keys []*generatedKey
	if err := json.Unmarshal([]byte(out), &keys); err != nil {
		t.Fatalf("genkey output %q: %v", out, err)
	}
	if len(keys) != 2 || keys[0].Address == keys[1].Address {
		t.Fatalf("unexpected keys %q", out)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, consts.Version) {
		t.Errorf("version output %q", out)
	}
}
