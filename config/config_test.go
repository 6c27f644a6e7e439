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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const fullConfig = `
loglevel: debug
keys:
  - address: "0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f"
    keys:
      - "0x4646464646464646464646464646464646464646464646464646464646464646"
    feepayer:
      - "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
network:
  nodes:
    local: "http://127.0.0.1:8551"
  timeout: 3s
pool:
  backend: redis
  addr: "10.0.0.1:6379"
  ttl: 1h
`

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "txsignconf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "txsign.yaml")
	if err := ioutil.WriteFile(path, []byte(fullConfig), 0600); err != nil {
		t.Fatal(err)
	}

	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if SystemConf != conf {
		t.Error("system config not set")
	}
	if conf.Level != logrus.DebugLevel {
		t.Errorf("level %s", conf.Level)
	}
	if len(conf.Keys) != 1 || len(conf.Keys[0].FeePayerKeys) != 1 {
		t.Fatalf("keys %v", conf.Keys)
	}
	if roles := conf.Keys[0].RoleKeys(); len(roles) != 3 || len(roles[1]) != 0 {
		t.Errorf("role keys %v", roles)
	}
	if !conf.Network.HasNodes() || conf.Network.Namespace != NetworkDefaultNamespace || conf.Network.Timeout != 3*time.Second {
		t.Errorf("network %s", conf.Network)
	}
	if conf.Pool.Backend != PoolRedis || conf.Pool.TTL != time.Hour || conf.Pool.Prefix != PoolDefaultPrefix {
		t.Errorf("pool %s", conf.Pool)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestConfigDefaults(t *testing.T) {
	conf, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Level != logrus.InfoLevel {
		t.Errorf("level %s", conf.Level)
	}
	if conf.Network.HasNodes() || conf.Network.Timeout != NetworkDefaultTimeout {
		t.Errorf("network %s", conf.Network)
	}
	if conf.Pool.Backend != PoolLevelDB || conf.Pool.Path != PoolDefaultPath {
		t.Errorf("pool %s", conf.Pool)
	}
}

func TestConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"level":       "loglevel: loud",
		"no keys":     "keys:\n  - address: \"0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f\"",
		"bad key":     "keys:\n  - keys: [\"0x1234zz\"]",
		"bad address": "keys:\n  - address: \"0x1234\"\n    keys: [\"0x4646464646464646464646464646464646464646464646464646464646464646\"]",
		"backend":     "pool:\n  backend: mongo",
		"scheme":      "network:\n  nodes:\n    a: \"ws://127.0.0.1:1\"",
		"duplicated": `keys:
  - address: "0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f"
    keys: ["0x4646464646464646464646464646464646464646464646464646464646464646"]
  - address: "0x9D8A62F656A8D1615C1294FD71E9CFB3E4855A4F"
    keys: ["0x4646464646464646464646464646464646464646464646464646464646464646"]`,
	}
	for name, c := range cases {
		_, err := ParseConfig([]byte(c))
		if err == nil {
			t.Errorf("%s: should fail", name)
			continue
		}
		if name != "level" && !strings.Contains(err.Error(), "[CONFIG]") {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
}
