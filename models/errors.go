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

package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them,
// use errors.Is to classify.
var (
	// ErrValidation malformed address or numeric field, the value was rejected
	ErrValidation = errors.New("validation error")
	// ErrPolicy the operation is not permitted for this transaction/keyring combination
	ErrPolicy = errors.New("policy error")
	// ErrConfiguration required data could not be resolved (e.g. no chain reader)
	ErrConfiguration = errors.New("configuration error")
	// ErrFormat encodings could not be decoded or do not describe the same transaction
	ErrFormat = errors.New("format error")
)

var (
	ErrTxTypeNotSupported = fmt.Errorf("%w: transaction type not supported", ErrFormat)
	ErrEmptySignature     = fmt.Errorf("%w: signatures is empty", ErrPolicy)
	ErrInvalidSig         = fmt.Errorf("%w: invalid transaction v, r, s values", ErrPolicy)
	ErrTxNotMatch         = fmt.Errorf("%w: transactions containing different information cannot be combined", ErrFormat)
	errEmptyTypedTx       = fmt.Errorf("%w: empty typed transaction bytes", ErrFormat)
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func policyErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPolicy, fmt.Sprintf(format, args...))
}

func formatErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
