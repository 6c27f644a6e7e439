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
	"fmt"
	"net/url"
	"time"
)

const (
	NetworkDefaultNamespace = "klay"
	NetworkDefaultTimeout   = 5 * time.Second
)

type NetworkConf struct {
	Nodes     map[string]string `yaml:"nodes" json:"nodes"`         // node name -> JSON-RPC url
	Namespace string            `yaml:"namespace" json:"namespace"` // JSON-RPC method prefix
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`     // per request timeout
}

func (n *NetworkConf) Validate() error {
	if n == nil {
		return nil
	}
	for name, rawurl := range n.Nodes {
		u, err := url.Parse(rawurl)
		if err != nil {
			return fmt.Errorf("node %s: %v", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("node %s: unsupported scheme %q", name, u.Scheme)
		}
	}
	if n.Namespace == "" {
		n.Namespace = NetworkDefaultNamespace
	}
	if n.Timeout <= 0 {
		n.Timeout = NetworkDefaultTimeout
	}
	return nil
}

func (n *NetworkConf) HasNodes() bool {
	return n != nil && len(n.Nodes) > 0
}

func (n *NetworkConf) String() string {
	if n == nil {
		return "NetworkConf<nil>"
	}
	return fmt.Sprintf("NetworkConf{Nodes:%d Namespace:%s Timeout:%s}", len(n.Nodes), n.Namespace, n.Timeout)
}
