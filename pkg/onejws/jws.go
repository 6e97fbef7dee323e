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

// Package onejws builds and verifies multi-signature envelopes: a single
// JSON payload carrying an ordered list of independent per-signer
// signatures, each with its own protected header. It also extends an
// existing compact token or envelope with additional signers.
package onejws

import (
	"encoding/json"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"

	"github.com/oneidconnect/oneid-go/pkg/claims"
	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/oneidcodec"
	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

const (
	multiTyp    = "JOSE+JSON"
	compactTyp  = "JWT"
	alg         = "ES256"
)

// Envelope is the wire shape of a multi-signature token.
type Envelope struct {
	Payload    string          `json:"payload"`
	Signatures []EnvelopeEntry `json:"signatures"`
}

// EnvelopeEntry is one independent signer's contribution to an Envelope.
// Header is the JWS general-serialization "unprotected header": metadata
// that rides alongside a signature without being covered by it. It is
// empty for every entry MakeJWS produces (their kid lives in Protected,
// which the signature does cover) and populated only for a legacy entry
// ExtendJWSSignatures promotes from a compact token, whose original
// signature cannot cover a kid it never carried at signing time.
type EnvelopeEntry struct {
	Protected string            `json:"protected"`
	Header    map[string]string `json:"header,omitempty"`
	Signature string            `json:"signature"`
}

type signerHeader struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// options holds the tunables MakeJWS/VerifyJWS/ExtendJWSSignatures accept.
type options struct {
	validator   *claims.Validator
	verifyAll   bool
	existingKid string
}

// Option configures MakeJWS/VerifyJWS/ExtendJWSSignatures.
type Option func(*options)

// WithValidator overrides the claims validator, most commonly to inject a
// mock clock in tests.
func WithValidator(v *claims.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithVerifyAll controls VerifyJWS's multiplicity rule: true (the default)
// requires the caller's keypair set to exactly match the envelope's signer
// set; false accepts any single successful verification.
func WithVerifyAll(verifyAll bool) Option {
	return func(o *options) { o.verifyAll = verifyAll }
}

// WithExistingKid supplies the kid to record for a promoted compact token's
// first entry. A compact token's header never actually carries a kid (§4.6
// requires it to contain exactly "typ"/"alg"), so this is normally required
// when ExtendJWSSignatures is given compact input.
func WithExistingKid(kid string) Option {
	return func(o *options) { o.existingKid = kid }
}

func resolveOptions(opts []Option) *options {
	o := &options{validator: claims.NewValidator(), verifyAll: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MakeJWS signs claims independently with each of kps (which may be empty,
// producing an envelope with zero signatures) and returns the serialized
// envelope. Every signing keypair must carry a non-empty Identity.
func MakeJWS(claimSet map[string]any, kps []keypair.Keypair, opts ...Option) (string, error) {
	if claimSet == nil {
		return "", oneiderr.New(oneiderr.InvalidFormat, "claims must be a JSON object")
	}
	claims.WithDefaultIssuer(claimSet)

	payload, err := json.Marshal(claimSet)
	if err != nil {
		return "", oneiderr.Wrap(oneiderr.InvalidFormat, err, "failed to serialize claims")
	}
	payloadSeg := oneidcodec.EncodeToString(payload)

	entries := make([]EnvelopeEntry, 0, len(kps))
	for _, kp := range kps {
		entry, err := signEntry(kp, payloadSeg)
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}

	env := Envelope{Payload: payloadSeg, Signatures: entries}
	out, err := json.Marshal(env)
	if err != nil {
		return "", oneiderr.Wrap(oneiderr.InvalidFormat, err, "failed to serialize envelope")
	}
	return string(out), nil
}

// signEntry builds and signs one multi-signature entry for kp over
// payloadSeg. kp must carry a non-empty Identity.
func signEntry(kp keypair.Keypair, payloadSeg string) (EnvelopeEntry, error) {
	if kp.Identity() == "" {
		return EnvelopeEntry{}, oneiderr.New(oneiderr.InvalidKey, "signing keypair must have a non-empty identity for multi-signature use")
	}

	header, err := json.Marshal(signerHeader{Typ: multiTyp, Alg: alg, Kid: kp.Identity()})
	if err != nil {
		return EnvelopeEntry{}, oneiderr.Wrap(oneiderr.InvalidFormat, err, "failed to serialize per-signer header")
	}
	protectedSeg := oneidcodec.EncodeToString(header)

	sig, err := kp.Sign([]byte(protectedSeg + "." + payloadSeg))
	if err != nil {
		return EnvelopeEntry{}, err
	}

	return EnvelopeEntry{Protected: protectedSeg, Signature: oneidcodec.EncodeToString(sig)}, nil
}

// parseEnvelope accepts either a genuine envelope JSON string or a compact
// three-segment token, lifting the latter into a one-entry envelope whose
// single signer header keeps its original "JWT" shape (no kid).
func parseEnvelope(input string) (Envelope, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var env Envelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return Envelope{}, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed envelope JSON")
		}
		if env.Payload == "" {
			return Envelope{}, oneiderr.New(oneiderr.InvalidFormat, "envelope is missing \"payload\"")
		}
		if env.Signatures == nil {
			return Envelope{}, oneiderr.New(oneiderr.InvalidFormat, "envelope is missing \"signatures\"")
		}
		return env, nil
	}

	segments := strings.Split(trimmed, ".")
	if len(segments) != 3 {
		return Envelope{}, oneiderr.New(oneiderr.InvalidFormat, "input is neither a JSON envelope nor a 3-segment compact token")
	}
	return Envelope{
		Payload:    segments[1],
		Signatures: []EnvelopeEntry{{Protected: segments[0], Signature: segments[2]}},
	}, nil
}

// decodeSignerHeader decodes and validates a per-signer protected header.
// requireKid is false for a compact-shaped ("JWT") header: the synthetic
// entry parseEnvelope lifts from a compact token, a legacy entry that
// ExtendJWSSignatures promoted, and the compact header ExtendJWSSignatures
// inspects for a kid. It then also expects "typ" to be "JWT".
func decodeSignerHeader(protectedSeg string, requireKid bool) (signerHeader, error) {
	raw, err := oneidcodec.DecodeString(protectedSeg)
	if err != nil {
		return signerHeader{}, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return signerHeader{}, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed per-signer header")
	}

	typ, _ := decoded["typ"].(string)
	wantTyp := multiTyp
	if !requireKid {
		wantTyp = compactTyp
	}
	if typ != wantTyp {
		return signerHeader{}, oneiderr.New(oneiderr.InvalidFormat, "per-signer header \"typ\" must be %q", wantTyp)
	}

	algVal, hasAlg := decoded["alg"].(string)
	if !hasAlg || algVal == "" {
		return signerHeader{}, oneiderr.New(oneiderr.InvalidAlgorithm, "per-signer header is missing \"alg\"")
	}
	if algVal != alg {
		return signerHeader{}, oneiderr.New(oneiderr.InvalidAlgorithm, "unsupported algorithm %q", algVal)
	}

	kid, _ := decoded["kid"].(string)
	if requireKid && kid == "" {
		return signerHeader{}, oneiderr.New(oneiderr.InvalidFormat, "per-signer header is missing \"kid\"")
	}

	return signerHeader{Typ: typ, Alg: algVal, Kid: kid}, nil
}

// decodeAllHeaders decodes every entry's protected header, collecting
// decode failures with go-multierror over one exhaustive pass, then returns
// only the first offending error to the caller, per the
// eager-first-violation contract; the other collected errors are dropped.
// A legacy entry promoted
// from a compact token (protected header still "JWT"-shaped) has its kid
// recovered from the entry's unprotected Header instead of the protected
// one, since the protected header never carried one.
func decodeAllHeaders(env Envelope) ([]signerHeader, error) {
	headers := make([]signerHeader, len(env.Signatures))
	var errs *multierror.Error
	for i, entry := range env.Signatures {
		legacy := isLiftedCompactHeader(entry.Protected)
		h, err := decodeSignerHeader(entry.Protected, !legacy)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if legacy {
			h.Kid = entry.Header["kid"]
		}
		headers[i] = h
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, errs.Errors[0]
	}
	return headers, nil
}

// isLiftedCompactHeader reports whether protectedSeg decodes to a
// compact-shaped ("JWT") header rather than a multi-signature one,
// without raising on malformed input (callers still run the real decode
// afterward).
func isLiftedCompactHeader(protectedSeg string) bool {
	raw, err := oneidcodec.DecodeString(protectedSeg)
	if err != nil {
		return false
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return false
	}
	typ, _ := decoded["typ"].(string)
	return typ == compactTyp
}

// VerifyJWS validates the structure, signatures, and claims of input, which
// may be either an envelope JSON string or a compact token. kps may be nil
// or empty for structure-only verification.
func VerifyJWS(input string, kps []keypair.Keypair, opts ...Option) (map[string]any, error) {
	o := resolveOptions(opts)

	env, err := parseEnvelope(input)
	if err != nil {
		return nil, err
	}

	headers, err := decodeAllHeaders(env)
	if err != nil {
		return nil, err
	}

	if len(env.Signatures) == 0 {
		return nil, oneiderr.New(oneiderr.InvalidSignature, "envelope has zero signatures")
	}

	payloadBytes, err := oneidcodec.DecodeString(env.Payload)
	if err != nil {
		return nil, err
	}
	var claimSet map[string]any
	if err := json.Unmarshal(payloadBytes, &claimSet); err != nil {
		return nil, oneiderr.Wrap(oneiderr.InvalidFormat, err, "malformed payload")
	}

	if len(kps) > 0 {
		if err := verifySignatures(env, headers, kps, o.verifyAll); err != nil {
			return nil, err
		}
	}

	if err := o.validator.Validate(claimSet); err != nil {
		return nil, err
	}

	return claimSet, nil
}

func verifySignatures(env Envelope, headers []signerHeader, kps []keypair.Keypair, verifyAll bool) error {
	// A lone legacy entry (a compact token lifted straight into VerifyJWS,
	// never passed through ExtendJWSSignatures) has no kid at all, so the
	// kid-multiset machinery below does not apply to it: fall back to
	// trying every caller-supplied keypair directly, the same as §4.6
	// verify_jwt would against a single keypair.
	if len(headers) == 1 && headers[0].Kid == "" && isLiftedCompactHeader(env.Signatures[0].Protected) {
		return verifyAnySigner(env.Signatures[0], headers[0], env.Payload, kps)
	}

	byKid := make(map[string]keypair.Keypair, len(kps))
	if verifyAll {
		seen := make(map[string]bool, len(kps))
		for _, kp := range kps {
			if seen[kp.Identity()] {
				return oneiderr.New(oneiderr.InvalidKey, "duplicate keypair identity %q in caller-supplied keypair set", kp.Identity())
			}
			seen[kp.Identity()] = true
			byKid[kp.Identity()] = kp
		}

		envelopeKids := make([]string, len(headers))
		for i, h := range headers {
			envelopeKids[i] = h.Kid
		}
		callerKids := make([]string, 0, len(kps))
		for _, kp := range kps {
			callerKids = append(callerKids, kp.Identity())
		}
		if !sameMultiset(callerKids, envelopeKids) {
			return oneiderr.New(oneiderr.KeySignatureMismatch, "caller-supplied keypair set does not match the envelope's signer set")
		}

		for i, entry := range env.Signatures {
			kp := byKid[headers[i].Kid]
			ok, err := verifyEntry(kp, entry, headers[i], env.Payload)
			if err != nil {
				return oneiderr.Wrap(oneiderr.InvalidSignature, err, "signature verification failed for kid %q", headers[i].Kid)
			}
			if !ok {
				return oneiderr.New(oneiderr.InvalidSignature, "signature does not verify for kid %q", headers[i].Kid)
			}
		}
		return nil
	}

	for _, kp := range kps {
		byKid[kp.Identity()] = kp
	}

	anyKidMatched := false
	for i, entry := range env.Signatures {
		kp, ok := byKid[headers[i].Kid]
		if !ok {
			continue
		}
		anyKidMatched = true
		verified, err := verifyEntry(kp, entry, headers[i], env.Payload)
		if err == nil && verified {
			return nil
		}
	}
	if !anyKidMatched {
		return oneiderr.New(oneiderr.KeySignatureMismatch, "no caller-supplied keypair matches any signer in the envelope")
	}
	return oneiderr.New(oneiderr.InvalidSignature, "no caller-supplied keypair successfully verified any signature")
}

// verifyAnySigner verifies entry against each of kps in turn, succeeding on
// the first match. Used only for a kid-less legacy entry, where there is no
// kid to look a specific keypair up by.
func verifyAnySigner(entry EnvelopeEntry, header signerHeader, payloadSeg string, kps []keypair.Keypair) error {
	for _, kp := range kps {
		ok, err := verifyEntry(kp, entry, header, payloadSeg)
		if err != nil {
			return oneiderr.Wrap(oneiderr.InvalidSignature, err, "signature verification failed")
		}
		if ok {
			return nil
		}
	}
	return oneiderr.New(oneiderr.InvalidSignature, "signature does not verify against any caller-supplied keypair")
}

func verifyEntry(kp keypair.Keypair, entry EnvelopeEntry, header signerHeader, payloadSeg string) (bool, error) {
	if kp == nil {
		return false, nil
	}
	sig, err := oneidcodec.DecodeString(entry.Signature)
	if err != nil {
		return false, err
	}
	return kp.Verify([]byte(entry.Protected+"."+payloadSeg), sig)
}

// sameMultiset reports whether a and b contain the same elements with the
// same multiplicities, ignoring order.
func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]string(nil), a...)
	bc := append([]string(nil), b...)
	slices.Sort(ac)
	slices.Sort(bc)
	return slices.Equal(ac, bc)
}

// ExtendJWSSignatures appends additional independent signatures to input,
// which may be an existing envelope or a compact token. Promoting a compact
// token keeps its original signature unchanged as the first entry: the
// signature already covers the original compact header and payload, and
// nothing re-signs it. Its kid (required via WithExistingKid, since a
// compact header never carries one of its own) rides along in that entry's
// unprotected Header instead. Every additional keypair must carry a
// non-empty Identity.
func ExtendJWSSignatures(input string, additional []keypair.Keypair, opts ...Option) (string, error) {
	o := resolveOptions(opts)

	trimmed := strings.TrimSpace(input)
	var env Envelope

	if strings.HasPrefix(trimmed, "{") {
		parsed, err := parseEnvelope(trimmed)
		if err != nil {
			return "", err
		}
		env = parsed
	} else {
		segments := strings.Split(trimmed, ".")
		if len(segments) != 3 {
			return "", oneiderr.New(oneiderr.InvalidFormat, "input is neither a JSON envelope nor a 3-segment compact token")
		}
		headerSeg, payloadSeg, sigSeg := segments[0], segments[1], segments[2]

		kid := o.existingKid
		if kid == "" {
			if h, err := decodeSignerHeader(headerSeg, false); err == nil {
				kid = h.Kid
			}
		}
		if kid == "" {
			return "", oneiderr.New(oneiderr.InvalidKey, "promoting a compact token requires an existing kid")
		}

		env = Envelope{
			Payload: payloadSeg,
			Signatures: []EnvelopeEntry{{
				Protected: headerSeg,
				Header:    map[string]string{"kid": kid},
				Signature: sigSeg,
			}},
		}
	}

	for _, kp := range additional {
		entry, err := signEntry(kp, env.Payload)
		if err != nil {
			return "", err
		}
		env.Signatures = append(env.Signatures, entry)
	}

	out, err := json.Marshal(env)
	if err != nil {
		return "", oneiderr.Wrap(oneiderr.InvalidFormat, err, "failed to serialize envelope")
	}
	return string(out), nil
}

// GetJWSKeyIDs returns the kid of each signature in envelope order. input
// must be a genuine envelope, not a compact token.
func GetJWSKeyIDs(input string) ([]string, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, oneiderr.New(oneiderr.InvalidFormat, "input is not a multi-signature envelope")
	}
	env, err := parseEnvelope(trimmed)
	if err != nil {
		return nil, err
	}
	headers, err := decodeAllHeaders(env)
	if err != nil {
		return nil, err
	}
	kids := make([]string, len(headers))
	for i, h := range headers {
		kids[i] = h.Kid
	}
	return kids, nil
}
