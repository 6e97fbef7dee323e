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

// Package onejwt builds and verifies compact, single-signature tokens: the
// familiar three-segment "header.payload.signature" shape, signed with a
// single ECDSA P-256 keypair.
package onejwt

import (
	"encoding/json"
	"strings"

	"github.com/oneidconnect/oneid-go/pkg/claims"
	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/oneidcodec"
	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// HeaderJSON is the fixed protected-header literal used by MakeJWT. It is
// never reserialized from a struct; the wire bytes are this literal,
// unconditionally.
const HeaderJSON = `{"typ":"JWT","alg":"ES256"}`

var headerSegment = oneidcodec.EncodeToString([]byte(HeaderJSON))

// options holds the tunables MakeJWT/VerifyJWT accept as Options.
type options struct {
	validator *claims.Validator
}

// Option configures MakeJWT/VerifyJWT.
type Option func(*options)

// WithValidator overrides the claims validator, most commonly to inject a
// mock clock in tests.
func WithValidator(v *claims.Validator) Option {
	return func(o *options) { o.validator = v }
}

func resolveOptions(opts []Option) *options {
	o := &options{validator: claims.NewValidator()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MakeJWT signs claims with kp and returns the compact token. claims is
// mutated in place to inject a default "iss" if absent.
func MakeJWT(claimSet map[string]any, kp keypair.Keypair, opts ...Option) (string, error) {
	if claimSet == nil {
		return "", oneiderr.New(oneiderr.InvalidFormat, "claims must be a JSON object")
	}
	claims.WithDefaultIssuer(claimSet)

	payload, err := json.Marshal(claimSet)
	if err != nil {
		return "", oneiderr.Wrap(oneiderr.InvalidFormat, err, "failed to serialize claims")
	}
	payloadSegment := oneidcodec.EncodeToString(payload)

	signingInput := headerSegment + "." + payloadSegment
	sig, err := kp.Sign([]byte(signingInput))
	if err != nil {
		return "", err
	}

	return signingInput + "." + oneidcodec.EncodeToString(sig), nil
}

// VerifyJWT validates the structure, optional signature, and claims of
// token, returning the decoded claim set. kp may be nil to skip signature
// verification while still validating structure and claims.
func VerifyJWT(token string, kp keypair.Keypair, opts ...Option) (map[string]any, error) {
	o := resolveOptions(opts)

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "token must have exactly 3 dot-separated segments, got %d", len(segments))
	}
	headerSeg, payloadSeg, sigSeg := segments[0], segments[1], segments[2]

	if err := validateHeader(headerSeg); err != nil {
		return nil, err
	}

	payloadBytes, err := oneidcodec.DecodeString(payloadSeg)
	if err != nil {
		return nil, err
	}
	var claimSet map[string]any
	if err := json.Unmarshal(payloadBytes, &claimSet); err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed payload")
	}

	if kp != nil {
		sig, err := oneidcodec.DecodeString(sigSeg)
		if err != nil {
			return nil, err
		}
		signingInput := headerSeg + "." + payloadSeg
		ok, err := kp.Verify([]byte(signingInput), sig)
		if err != nil {
			return nil, oneiderr.Wrap(oneiderr.InvalidSignature, err, "signature verification failed")
		}
		if !ok {
			return nil, oneiderr.New(oneiderr.InvalidSignature, "signature does not verify")
		}
	}

	if err := o.validator.Validate(claimSet); err != nil {
		return nil, err
	}

	return claimSet, nil
}

// validateHeader decodes headerSeg and requires it to be a JSON object with
// exactly the two keys "typ" and "alg", valued "JWT" and "ES256". Key order
// and surrounding whitespace are irrelevant; only the decoded shape matters.
func validateHeader(headerSeg string) error {
	raw, err := oneidcodec.DecodeString(headerSeg)
	if err != nil {
		return err
	}

	var header map[string]any
	if err := json.Unmarshal(raw, &header); err != nil {
		return oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed header")
	}
	if len(header) != 2 {
		return oneiderr.New(oneiderr.InvalidFormat, "header must contain exactly typ and alg, got %d keys", len(header))
	}
	if typ, _ := header["typ"].(string); typ != "JWT" {
		return oneiderr.New(oneiderr.InvalidFormat, `header "typ" must be "JWT"`)
	}
	if alg, _ := header["alg"].(string); alg != "ES256" {
		return oneiderr.New(oneiderr.InvalidFormat, `header "alg" must be "ES256"`)
	}
	return nil
}
