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

package consts

const (
	Version = "V1.0.3" // txsign version

	DefaultConfigPath = "./txsign.yaml"

	// defaults of the sign command
	GasPrice           = "25000000000" // 25 ston
	TransferGas uint64 = 21000
	GasLimit    uint64 = 2500000
)
