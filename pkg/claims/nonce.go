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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// IssuerMintedPrefix is the only "NNN" prefix value validateNonce accepts.
const IssuerMintedPrefix = "001"

const (
	nonceTimestampLayout = "2006-01-02T15:04:05Z"
	nonceTrailerLen      = 6
	nonceTimestampLen    = len(nonceTimestampLayout)
	nonceTotalLen        = len(IssuerMintedPrefix) + nonceTimestampLen + nonceTrailerLen
)

// validateNonce rejects jti unless it is IssuerMintedPrefix followed by an
// RFC 3339 UTC timestamp within [now-NonceValidity, now+Leeway] followed by
// six arbitrary characters. A malformed nonce (wrong length, unparsable
// timestamp) and any non-"001" prefix are both rejected.
func (v *Validator) validateNonce(jti string, now time.Time) error {
	if len(jti) != nonceTotalLen {
		return oneiderr.New(oneiderr.InvalidClaims, "malformed jti: expected length %d, got %d", nonceTotalLen, len(jti))
	}

	prefix := jti[:len(IssuerMintedPrefix)]
	if prefix != IssuerMintedPrefix {
		return oneiderr.New(oneiderr.InvalidClaims, "unrecognized jti prefix %q", prefix)
	}

	tsStr := jti[len(IssuerMintedPrefix) : len(IssuerMintedPrefix)+nonceTimestampLen]
	ts, err := time.Parse(nonceTimestampLayout, tsStr)
	if err != nil {
		return oneiderr.Wrap(oneiderr.InvalidClaims, err, "malformed jti timestamp %q", tsStr)
	}

	earliest := now.Add(-v.NonceValidity)
	latest := now.Add(v.Leeway)
	if ts.Before(earliest) || ts.After(latest) {
		return oneiderr.New(oneiderr.InvalidClaims, "expired nonce: timestamp %s outside [%s, %s]", ts, earliest, latest)
	}

	if v.SeenNonces != nil {
		if seen := v.SeenNonces.MarkSeen(jti); seen {
			return oneiderr.New(oneiderr.InvalidClaims, "nonce %q already used", jti)
		}
	}

	return nil
}

// MintNonce builds a fresh issuer-minted ("001") nonce for the given time,
// with six trailer characters drawn from a freshly generated UUID. It is an
// issuer-side convenience, not part of the verification path.
func MintNonce(at time.Time) (string, error) {
	trailer := strings.ReplaceAll(uuid.New().String(), "-", "")[:nonceTrailerLen]
	return IssuerMintedPrefix + at.UTC().Format(nonceTimestampLayout) + trailer, nil
}
