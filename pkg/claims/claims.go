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

// Package claims validates the standard claim fields (exp, nbf, iss, jti)
// carried by both the compact token and multi-signature engines, and
// defines the nonce (jti) issuance policy. Nothing in this package touches
// the wire format; it operates purely on a decoded map[string]any.
package claims

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// DefaultIssuer is injected into "iss" by the signing engines when the
// caller's claim map omits it. It is never enforced on verification.
const DefaultIssuer = "oneID"

// DefaultLeeway is the clock-skew tolerance applied to exp/nbf and to the
// upper bound of the nonce acceptance window.
const DefaultLeeway = 60 * time.Second

// DefaultNonceValidity is how far into the past an issuer-minted nonce's
// embedded timestamp may fall before it is treated as expired.
const DefaultNonceValidity = 120 * time.Second

// Validator checks exp/nbf/jti against a configurable leeway and nonce
// validity window, using an injectable clock so tests can move time forward
// without sleeping.
type Validator struct {
	Clock         clock.Clock
	Leeway        time.Duration
	NonceValidity time.Duration

	// SeenNonces, if set, is consulted (and updated) after an issuer-minted
	// nonce passes its timestamp check, giving replay protection on top of
	// the stateless timestamp policy. Nil disables replay tracking, matching
	// the base policy's stateless design.
	SeenNonces *SeenNonceCache
}

// NewValidator returns a Validator with the published defaults and a real
// wall clock.
func NewValidator() *Validator {
	return &Validator{
		Clock:         clock.New(),
		Leeway:        DefaultLeeway,
		NonceValidity: DefaultNonceValidity,
	}
}

// WithDefaultIssuer returns claims with "iss" set to DefaultIssuer if and
// only if claims does not already contain an "iss" entry. It mutates and
// returns the same map.
func WithDefaultIssuer(claims map[string]any) map[string]any {
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = DefaultIssuer
	}
	return claims
}

// Validate checks exp, nbf, and jti (if present) against v's clock, leeway
// and nonce policy. Claims without any of these fields are valid trivially.
// Non-numeric exp/nbf values are treated as absent rather than rejected, per
// the lenient-decoding rule.
func (v *Validator) Validate(claims map[string]any) error {
	now := v.Clock.Now().UTC()

	if exp, ok := numericClaim(claims["exp"]); ok {
		deadline := time.Unix(int64(exp), 0).Add(v.Leeway)
		if now.After(deadline) {
			return oneiderr.New(oneiderr.InvalidClaims, "token expired at %s (leeway %s)", time.Unix(int64(exp), 0).UTC(), v.Leeway)
		}
	}

	if nbf, ok := numericClaim(claims["nbf"]); ok {
		earliest := time.Unix(int64(nbf), 0).Add(-v.Leeway)
		if now.Before(earliest) {
			return oneiderr.New(oneiderr.InvalidClaims, "token not valid before %s", time.Unix(int64(nbf), 0).UTC())
		}
	}

	if jtiVal, ok := claims["jti"]; ok {
		jti, ok := jtiVal.(string)
		if !ok {
			return oneiderr.New(oneiderr.InvalidClaims, "jti must be a string")
		}
		if err := v.validateNonce(jti, now); err != nil {
			return err
		}
	}

	return nil
}

// numericClaim coerces a decoded JSON number (float64 from encoding/json, or
// a float32, int or int64 a caller put in a claim map programmatically) into
// a float64, reporting false for anything else, including strings and other
// numeric types such as int32 or uint, so callers can treat it as absent
// rather than crash.
func numericClaim(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
