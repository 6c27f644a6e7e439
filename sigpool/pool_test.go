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

package sigpool

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-txsign/config"
	"github.com/ThinkiumGroup/go-txsign/keyring"
	"github.com/ThinkiumGroup/go-txsign/models"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func memPool(t *testing.T) *Pool {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		t.Fatalf("open memory db failed: %v", err)
	}
	return NewPool(NewLevelStore(db))
}

// multisigRaws signs one value transfer with every key of a two key keyring,
// each party producing its own raw transaction.
func multisigRaws(t *testing.T) (raws [][]byte, signers []common.Address) {
	k1, err := keyring.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	k2, err := keyring.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	kr, err := keyring.NewMultipleKeyring(k1.Address(), k1, k2)
	if err != nil {
		t.Fatal(err)
	}

	tx, err := models.NewTransaction(models.TxConfig{
		From:    models.AddressString(kr.Address()),
		Nonce:   "0x7",
		Gas:     "0x5208",
		ChainID: "0x3e9",
	}, &models.ValueTransferTx{GasPrice: big.NewInt(25), To: common.Address{9}, Value: big.NewInt(100)})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		signed, err := models.SignWithIndex(context.Background(), tx, kr, i)
		if err != nil {
			t.Fatalf("sign with key %d failed: %v", i, err)
		}
		raw, err := signed.RawEncoding()
		if err != nil {
			t.Fatal(err)
		}
		raws = append(raws, raw)
	}
	return raws, []common.Address{k1.Address(), k2.Address()}
}

func checkSigners(t *testing.T, tx *models.Transaction, signers []common.Address) {
	addrs, err := models.RecoverAddresses(tx)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if len(addrs) != len(signers) {
		t.Fatalf("recovered %d signers, want %d", len(addrs), len(signers))
	}
	for _, s := range signers {
		found := false
		for _, a := range addrs {
			if a == s {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("signer %x not recovered", s[:])
		}
	}
}

func TestPoolCombine(t *testing.T) {
	p := memPool(t)
	defer p.Close()
	ctx := context.Background()
	raws, signers := multisigRaws(t)

	var tick int64 = 1000
	p.now = func() time.Time { tick++; return time.Unix(tick, 0) }

	h1, err := p.Put(ctx, raws[0])
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Put(ctx, raws[1])
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("both parties sign the same hash, got %x and %x", h1[:], h2[:])
	}

	// same raw again is deduplicated
	if _, err := p.Put(ctx, raws[0]); err != nil {
		t.Fatal(err)
	}
	records, err := p.Records(ctx, h1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("%d records, want 2", len(records))
	}
	if records[0].Received > records[1].Received {
		t.Errorf("records not ordered: %s %s", records[0], records[1])
	}

	combined, err := p.Combine(ctx, h1)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if len(combined.Signatures()) != 2 {
		t.Fatalf("%d signatures, want 2", len(combined.Signatures()))
	}
	checkSigners(t, combined, signers)

	if err := p.Delete(ctx, h1); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Combine(ctx, h1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestPoolRejects(t *testing.T) {
	p := memPool(t)
	ctx := context.Background()

	if _, err := p.Put(ctx, []byte{0x01, 0x02}); err == nil {
		t.Error("garbage should be rejected")
	}

	unsigned, err := models.NewTransaction(models.TxConfig{
		From:    "0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f",
		Nonce:   "0x1",
		Gas:     "0x5208",
		ChainID: "0x1",
	}, &models.ValueTransferTx{GasPrice: big.NewInt(1), To: common.Address{1}, Value: big.NewInt(1)})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := unsigned.RawEncoding()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Put(ctx, raw); !errors.Is(err, models.ErrEmptySignature) {
		t.Errorf("want empty signature error, got %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Records(ctx, common.Hash{}); err != ErrClosed {
		t.Errorf("want %v, got %v", ErrClosed, err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestOpenLevelDB(t *testing.T) {
	dir, err := ioutil.TempDir("", "sigpool")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	p, err := Open(&config.PoolConf{Path: dir})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	raws, _ := multisigRaws(t)
	h, err := p.Put(context.Background(), raws[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(&config.PoolConf{Backend: config.PoolLevelDB, Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.Records(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || !bytes.Equal(records[0].Raw, raws[0]) {
		t.Fatalf("unexpected records %v", records)
	}

	if _, err := Open(&config.PoolConf{Backend: "mongo"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TXSIGN_TEST_REDIS")
	if addr == "" {
		t.Skip("TXSIGN_TEST_REDIS not set")
	}
	ctx := context.Background()
	store := NewRedisStore(addr, "", 0, "txsign:test:", time.Minute)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	p := NewPool(store)
	defer p.Close()

	raws, signers := multisigRaws(t)
	h, err := p.Put(ctx, raws[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Put(ctx, raws[1]); err != nil {
		t.Fatal(err)
	}
	combined, err := p.Combine(ctx, h)
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	checkSigners(t, combined, signers)
	if err := p.Delete(ctx, h); err != nil {
		t.Fatal(err)
	}
}
