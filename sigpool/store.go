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
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("no pending transaction")
	ErrClosed   = errors.New("signature pool closed")
)

// Store keeps values grouped under a key. Putting a value with an id already
// present under the key replaces it.
type Store interface {
	Put(ctx context.Context, key, id, value []byte) error
	List(ctx context.Context, key []byte) ([][]byte, error)
	Delete(ctx context.Context, key []byte) error
	Close() error
}
