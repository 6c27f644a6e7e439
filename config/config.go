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
	"io/ioutil"
	"reflect"
	"strings"

	"github.com/ThinkiumGroup/go-common/log"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const DefaultLogLevel = "info"

var (
	SystemConf *Config

	validatorInterface = reflect.TypeOf(new(ConfValidator)).Elem()
)

type ConfValidator interface {
	Validate() error
}

type Config struct {
	Keys     KeyConfs     `yaml:"keys"`     // keyrings available for signing
	Network  *NetworkConf `yaml:"network"`  // nodes used for nonce, chain id and broadcasting
	Pool     *PoolConf    `yaml:"pool"`     // storage of partially signed transactions
	LogLevel string       `yaml:"loglevel"` // panic, fatal, error, warn, info, debug or trace

	Level logrus.Level `yaml:"-"` // parsed from LogLevel
}

func LoadConfig(path string) (*Config, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error("reading config ", path, " error: ", err)
		return nil, err
	}
	config, err := ParseConfig(contents)
	if err != nil {
		log.Error("load config ", path, " error: ", err)
		return nil, err
	}
	SystemConf = config
	return config, nil
}

// ParseConfig unmarshals yaml contents and validates the result.
func ParseConfig(contents []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(contents, &config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	level, err := logrus.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("[CONFIG] %v", err)
	}
	c.Level = level

	if c.Network == nil {
		c.Network = &NetworkConf{}
	}
	if c.Pool == nil {
		c.Pool = &PoolConf{}
	}

	// validate all ConfValidators
	val := reflect.ValueOf(c).Elem()
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.Type.Implements(validatorInterface) {
			continue
		}
		fv := val.Field(i)
		if (fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Slice) && fv.IsNil() {
			continue
		}
		if err := fv.Interface().(ConfValidator).Validate(); err != nil {
			return fmt.Errorf("[CONFIG] validate field %s with error: %v", f.Name, err)
		}
	}
	return nil
}

func (c *Config) String() string {
	if c == nil {
		return "Config<nil>"
	}
	return fmt.Sprintf("Config{Keys:%d Network:%s Pool:%s LogLevel:%s}", len(c.Keys), c.Network, c.Pool, c.LogLevel)
}
