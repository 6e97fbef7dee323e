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

// Package keypair defines the opaque key abstraction the signing and
// verification engines consume: sign, verify and an optional textual
// identity used as a multi-signature "kid". The default implementation
// wraps an in-process ECDSA P-256 key; pkg/keypair's KMS variant wraps a
// cloud.google.com/go/kms-backed crypto.Signer the same way
// pkg/crypto/kms_signing.go does in the teacher service this module is
// grounded on.
package keypair

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"github.com/oneidconnect/oneid-go/pkg/ecsig"
	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// Keypair is the key abstraction the engines consume. Implementations must
// be safe for concurrent Sign/Verify calls once constructed (spec: logically
// immutable after construction).
type Keypair interface {
	// Sign returns the 64-byte raw (r||s) ECDSA signature over message.
	Sign(message []byte) ([]byte, error)

	// Verify reports whether sig is a valid 64-byte raw ECDSA signature by
	// this key over message. It returns false (not an error) on a signature
	// mismatch; it only errors on malformed inputs it cannot interpret at
	// all.
	Verify(message, sig []byte) (bool, error)

	// CanSign reports whether this keypair holds a private key.
	CanSign() bool

	// Identity returns the textual key id ("kid"), or "" if unset.
	Identity() string

	// SetIdentity sets the textual key id used as "kid" in multi-signature
	// headers. It is the only mutable attribute of an otherwise immutable
	// keypair.
	SetIdentity(id string)
}

// ECKeypair is the default Keypair backed by an in-process P-256 key.
type ECKeypair struct {
	priv     *ecdsa.PrivateKey
	pub      *ecdsa.PublicKey
	identity string
}

var _ Keypair = (*ECKeypair)(nil)

// Generate creates a fresh P-256 keypair.
func Generate() (*ECKeypair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidKey, err, "failed to generate P-256 key")
	}
	return &ECKeypair{priv: priv, pub: &priv.PublicKey}, nil
}

// FromSecretDER constructs a signing-capable Keypair from a PKCS#8-encoded
// EC private key.
func FromSecretDER(der []byte) (*ECKeypair, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed PKCS8 private key")
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "private key is not an ECDSA key")
	}
	if err := requireP256(priv.Curve); err != nil {
		return nil, err
	}
	return &ECKeypair{priv: priv, pub: &priv.PublicKey}, nil
}

// FromSecretPEM is FromSecretDER for the first PEM block in data, whose
// bytes must be PKCS#8 ("PRIVATE KEY"). The block type is not checked, and
// SEC1 "EC PRIVATE KEY" contents are rejected as malformed.
func FromSecretPEM(data []byte) (*ECKeypair, error) {
	der, err := pemBlockBytes(data)
	if err != nil {
		return nil, err
	}
	return FromSecretDER(der)
}

// FromPublicDER constructs a verification-only Keypair from a
// SubjectPublicKeyInfo-encoded EC public key.
func FromPublicDER(der []byte) (*ECKeypair, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed SubjectPublicKeyInfo")
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "public key is not an ECDSA key")
	}
	if err := requireP256(pub.Curve); err != nil {
		return nil, err
	}
	return &ECKeypair{pub: pub}, nil
}

// FromPublicPEM is FromPublicDER for a PEM-encoded "PUBLIC KEY" block.
func FromPublicPEM(data []byte) (*ECKeypair, error) {
	der, err := pemBlockBytes(data)
	if err != nil {
		return nil, err
	}
	return FromPublicDER(der)
}

func pemBlockBytes(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "no PEM block found")
	}
	return block.Bytes, nil
}

func requireP256(curve elliptic.Curve) error {
	if curve != elliptic.P256() {
		return oneiderr.New(oneiderr.InvalidKey, "key must use the P-256 curve")
	}
	return nil
}

// SecretPEM returns the PKCS#8 PEM encoding of k's private key. It errors if
// k holds no private key.
func (k *ECKeypair) SecretPEM() ([]byte, error) {
	if k.priv == nil {
		return nil, oneiderr.New(oneiderr.InvalidKey, "keypair has no private key to export")
	}
	der, err := x509.MarshalPKCS8PrivateKey(k.priv)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidKey, err, "failed to marshal private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PublicPEM returns the SubjectPublicKeyInfo PEM encoding of k's public key.
func (k *ECKeypair) PublicPEM() ([]byte, error) {
	if k.pub == nil {
		return nil, oneiderr.New(oneiderr.InvalidKey, "keypair has no public key to export")
	}
	der, err := x509.MarshalPKIXPublicKey(k.pub)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidKey, err, "failed to marshal public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func (k *ECKeypair) CanSign() bool { return k.priv != nil }

func (k *ECKeypair) Identity() string { return k.identity }

func (k *ECKeypair) SetIdentity(id string) { k.identity = id }

// Sign implements Keypair. It signs with ECDSA/SHA-256 and normalizes the
// result to the 64-byte raw form via ecsig.DERToRaw.
func (k *ECKeypair) Sign(message []byte) ([]byte, error) {
	if k.priv == nil {
		return nil, oneiderr.New(oneiderr.InvalidKey, "keypair has no private key to sign with")
	}
	digest := sha256.Sum256(message)
	der, err := ecdsa.SignASN1(rand.Reader, k.priv, digest[:])
	if err != nil {
		// Signing failures are environment/programmer errors per spec: they
		// propagate unchanged, not mapped into the closed error taxonomy.
		return nil, err
	}
	return ecsig.DERToRaw(der)
}

// Verify implements Keypair. Any malformed-signature condition, including
// one that fails to even parse as a signature once reassembled into DER,
// is reported as a false result rather than an error: per spec, internal
// cryptographic-backend failures during verification map to
// InvalidSignature, which callers distinguish by the bool return, not an
// error value.
func (k *ECKeypair) Verify(message, sig []byte) (bool, error) {
	if k.pub == nil {
		return false, oneiderr.New(oneiderr.InvalidKey, "keypair has no public key to verify with")
	}
	digest := sha256.Sum256(message)
	der := ecsig.RawToDER(sig)
	return ecdsa.VerifyASN1(k.pub, digest[:], der), nil
}
