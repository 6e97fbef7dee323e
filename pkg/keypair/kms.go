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

package keypair

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"github.com/sethvargo/go-gcpkms/pkg/gcpkms"
	"github.com/sethvargo/go-retry"

	"github.com/oneidconnect/oneid-go/pkg/ecsig"
	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// KMSKeypair is a Keypair backed by a Cloud KMS asymmetric-signing key
// version. Every Sign call round-trips to KMS; Verify is done locally
// against the cached public key, since KMS only exposes signing.
type KMSKeypair struct {
	signer   crypto.Signer
	pub      *ecdsa.PublicKey
	identity string

	retryBackoff retry.Backoff
}

var _ Keypair = (*KMSKeypair)(nil)

// KMSOption configures NewKMSKeypair.
type KMSOption func(*KMSKeypair)

// WithRetryBackoff overrides the default backoff used to retry a transient
// KMS signing failure. The default is up to four retries (five attempts in
// all) on a 200ms constant backoff.
func WithRetryBackoff(b retry.Backoff) KMSOption {
	return func(k *KMSKeypair) { k.retryBackoff = b }
}

// NewKMSKeypair wraps the asymmetric-signing key version named by keyName
// (projects/*/locations/*/keyRings/*/cryptoKeys/*/cryptoKeyVersions/*) as a
// Keypair. client is long-lived and owned by the caller.
func NewKMSKeypair(ctx context.Context, client *kms.KeyManagementClient, keyName string) (*KMSKeypair, error) {
	signer, err := gcpkms.NewSigner(ctx, client, keyName)
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidKey, err, "failed to construct KMS signer for %s", keyName)
	}

	pub, ok := signer.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, oneiderr.New(oneiderr.InvalidKey, "KMS key %s is not an ECDSA key", keyName)
	}
	if err := requireP256(pub.Curve); err != nil {
		return nil, err
	}

	backoff, err := retry.NewConstant(200 * time.Millisecond)
	if err != nil {
		return nil, err
	}

	return &KMSKeypair{
		signer:       signer,
		pub:          pub,
		retryBackoff: retry.WithMaxRetries(4, backoff),
	}, nil
}

func (k *KMSKeypair) CanSign() bool { return true }

func (k *KMSKeypair) Identity() string { return k.identity }

func (k *KMSKeypair) SetIdentity(id string) { k.identity = id }

// Sign asks KMS to sign message, retrying transient failures under the
// configured backoff, and normalizes the DER response to raw r||s.
func (k *KMSKeypair) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)

	var der []byte
	err := retry.Do(context.Background(), k.retryBackoff, func(ctx context.Context) error {
		sig, err := k.signer.Sign(rand.Reader, digest[:], crypto.SHA256)
		if err != nil {
			return retry.RetryableError(err)
		}
		der = sig
		return nil
	})
	if err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidKey, err, "KMS signing request failed")
	}

	return ecsig.DERToRaw(der)
}

// Verify checks sig locally against the cached public key; it never calls
// out to KMS.
func (k *KMSKeypair) Verify(message, sig []byte) (bool, error) {
	digest := sha256.Sum256(message)
	der := ecsig.RawToDER(sig)
	return ecdsa.VerifyASN1(k.pub, digest[:], der), nil
}
