// Copyright 2024 The OneID Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"os"

	"github.com/oneidconnect/oneid-go/pkg/keypair"
)

func loadSecretKey(path string) (*keypair.ECKeypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return keypair.FromSecretPEM(data)
}

func loadPublicKey(path string) (*keypair.ECKeypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return keypair.FromPublicPEM(data)
}
