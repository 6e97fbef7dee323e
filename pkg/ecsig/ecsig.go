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

// Package ecsig converts ECDSA P-256 signatures between the compact JOSE
// representation (RFC 7518 section 3.4: two 32-byte big-endian integers
// concatenated) and the ASN.1 DER SEQUENCE{r, s} representation that
// crypto.Signer implementations (including cloud KMS) return.
package ecsig

import (
	"encoding/asn1"
	"math/big"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// KeyBytes is the byte width of a P-256 field element.
const KeyBytes = 32

type ecdsaSignature struct {
	R, S *big.Int
}

// DERToRaw converts an ASN.1 DER ECDSA signature, as returned by
// crypto.Signer.Sign for an EC key, into the 64-byte raw r||s form used on
// the wire. It fails with oneiderr.InvalidFormat if der does not parse as a
// SEQUENCE{INTEGER, INTEGER} or if either integer needs more than KeyBytes
// significant bytes once its DER sign-extension zero is stripped.
//
// This is the direction used when signing: most cryptographic libraries
// (including Go's crypto.Signer, and cloud KMS) return DER, and the compact
// token format requires raw.
func DERToRaw(der []byte) ([]byte, error) {
	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed DER signature")
	}
	if len(rest) != 0 {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "trailing data after DER signature")
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() < 0 || sig.S.Sign() < 0 {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "DER signature integers must be present and non-negative")
	}

	rBytes := sig.R.Bytes()
	sBytes := sig.S.Bytes()
	if len(rBytes) > KeyBytes || len(sBytes) > KeyBytes {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "DER signature integer exceeds %d significant bytes", KeyBytes)
	}

	raw := make([]byte, 2*KeyBytes)
	copy(raw[KeyBytes-len(rBytes):KeyBytes], rBytes)
	copy(raw[2*KeyBytes-len(sBytes):], sBytes)
	return raw, nil
}

// RawToDER converts a raw JOSE ECDSA signature into ASN.1 DER so it can be
// checked with crypto/ecdsa.VerifyASN1 (or handed to an x509-based
// verifier). The canonical raw signature is exactly 2*KeyBytes long, but
// RawToDER accepts any even-length input by splitting it in half: a
// caller-supplied signature of the wrong length is not a format error by
// itself (an attacker could tamper with either the length or the bytes),
// it simply fails to verify, which the caller should report as
// InvalidSignature, not InvalidFormat. The one known-bad acceptance vector
// in pkg/onejwt's tests is such a case: its signature segment is itself DER
// rather than raw r||s.
func RawToDER(raw []byte) []byte {
	half := len(raw) / 2
	r := new(big.Int).SetBytes(raw[:half])
	s := new(big.Int).SetBytes(raw[half:])

	// asn1.Marshal never fails for a struct of two *big.Int fields.
	der, _ := asn1.Marshal(ecdsaSignature{R: r, S: s})
	return der
}
