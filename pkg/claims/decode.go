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

package claims

import (
	"github.com/mitchellh/mapstructure"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// Decode populates out (a pointer to a caller-defined struct) from a
// verified claim set. Callers use this once onejwt.VerifyJWT or
// onejws.VerifyJWS has returned a trusted map[string]any, to avoid
// repeating type assertions for every custom claim field.
//
// Struct fields use the same "mapstructure" tags applications already use
// elsewhere for map-to-struct decoding; a field with no tag matches its own
// name case-insensitively.
func Decode(claimSet map[string]any, out any) error {
	if err := mapstructure.Decode(claimSet, out); err != nil {
		return oneiderr.Wrap(oneiderr.InvalidClaims, err, "could not decode claims into %T", out)
	}
	return nil
}
