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

// Package oneidcodec implements the base64url encoding used throughout the
// JOSE wire formats (RFC 7515 section 2): no padding on output, padding
// tolerated on input.
package oneidcodec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// EncodeToString encodes data as unpadded, URL-safe base64.
func EncodeToString(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeString decodes a base64url string, accepting input with or without
// the trailing "=" padding. It fails with oneiderr.InvalidFormat if s
// contains characters outside the URL-safe alphabet or does not decode once
// padded.
func DecodeString(s string) ([]byte, error) {
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "invalid base64url segment")
	}
	return b, nil
}

// ToBytes coerces a value that is either a string or []byte into a UTF-8
// byte slice, matching the source implementation's lenient coercion of
// signing input supplied as either type.
func ToBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, oneiderr.New(oneiderr.InvalidFormat, "expected string or []byte, got %T", v)
	}
}

// ToString is the inverse of ToBytes for display purposes.
func ToString(v any) (string, error) {
	b, err := ToBytes(v)
	if err != nil {
		return "", fmt.Errorf("oneidcodec: %w", err)
	}
	return string(b), nil
}
