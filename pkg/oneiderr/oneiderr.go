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

// Package oneiderr defines the closed set of error kinds the core engines
// surface to callers. Every rejection from pkg/onejwt, pkg/onejws,
// pkg/claims, pkg/ecsig and pkg/keypair wraps one of these kinds, so callers
// can branch with errors.Is instead of string-matching messages.
package oneiderr

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of failure categories. New kinds are never added
// without a corresponding spec change, since callers match on these values.
type Kind string

const (
	// InvalidFormat covers malformed wire structure: wrong segment counts,
	// undecodable base64, malformed JSON, wrong header shape, missing
	// envelope keys, malformed DER.
	InvalidFormat Kind = "invalid_format"

	// InvalidAlgorithm covers a missing or non-ES256 "alg" header value.
	InvalidAlgorithm Kind = "invalid_algorithm"

	// InvalidSignature covers a signature that does not verify under the
	// supplied key, or an envelope with zero signatures.
	InvalidSignature Kind = "invalid_signature"

	// InvalidClaims covers exp/nbf/jti claim violations.
	InvalidClaims Kind = "invalid_claims"

	// InvalidKey covers a signing keypair missing its identity, or a
	// caller-supplied keypair list containing duplicates.
	InvalidKey Kind = "invalid_key"

	// KeySignatureMismatch covers a caller keypair set that does not match
	// the envelope's signer set under strict verification.
	KeySignatureMismatch Kind = "key_signature_mismatch"
)

// Error is the concrete error type returned by the core engines. It always
// carries a Kind so callers can use errors.Is/errors.As, plus a message and
// an optional wrapped cause for debugging.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, oneiderr.Sentinel(oneiderr.InvalidFormat)) style
// comparisons by matching on Kind alone, ignoring Message and Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind, wrapping cause for
// errors.Unwrap/errors.As chains.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Sentinel returns a zero-message *Error of the given kind, suitable as a
// target for errors.Is(err, oneiderr.Sentinel(oneiderr.InvalidFormat)).
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Of reports the Kind of err if it is (or wraps) an *Error, and whether one
// was found at all.
func Of(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}
