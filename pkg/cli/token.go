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

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oneidconnect/oneid-go/pkg/claims"
	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/onejws"
	"github.com/oneidconnect/oneid-go/pkg/onejwt"
)

// mintCmdOptions holds all the inputs and flags for the mint subcommand.
type mintCmdOptions struct {
	keyPaths   []string
	kids       []string
	claimsJSON string
	ttl        time.Duration
	withNonce  bool
	multi      bool
}

// newMintCmd creates a new subcommand for minting signed tokens.
func newMintCmd() *cobra.Command {
	opts := &mintCmdOptions{}

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed compact token or multi-signature envelope",
		Long: strings.Trim(`
Mint a new signed assertion from one or more PEM-encoded secret keys.

For example:

    # Mint a compact token signed with a single key
    oneidctl mint --key signer.pem --claims '{"sub":"alice"}'

    # Mint a multi-signature envelope signed with two keys
    oneidctl mint --key a.pem --kid alice --key b.pem --kid bob --multi \
        --claims '{"sub":"alice"}'
`, "\n"),
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMintCmd(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.keyPaths, "key", nil, "path to a PEM-encoded EC secret key (repeatable)")
	flags.StringSliceVar(&opts.kids, "kid", nil, "key id to assign the corresponding --key (repeatable, multi-signature only)")
	flags.StringVar(&opts.claimsJSON, "claims", "{}", "the claim set to sign, as a JSON object")
	flags.DurationVar(&opts.ttl, "ttl", 0, "if set, adds an \"exp\" claim this far in the future")
	flags.BoolVar(&opts.withNonce, "with-nonce", false, "mint and attach a fresh \"jti\" nonce")
	flags.BoolVar(&opts.multi, "multi", false, "produce a multi-signature envelope instead of a compact token")
	cmd.MarkFlagRequired("key") //nolint // not expect err

	return cmd
}

func runMintCmd(cmd *cobra.Command, opts *mintCmdOptions) error {
	out := cmd.OutOrStdout()

	var claimSet map[string]any
	if err := json.Unmarshal([]byte(opts.claimsJSON), &claimSet); err != nil {
		return fmt.Errorf("failed to parse --claims as JSON: %w", err)
	}
	if opts.ttl > 0 {
		claimSet["exp"] = float64(time.Now().Add(opts.ttl).Unix())
	}
	if opts.withNonce {
		nonce, err := claims.MintNonce(time.Now())
		if err != nil {
			return fmt.Errorf("failed to mint nonce: %w", err)
		}
		claimSet["jti"] = nonce
	}

	kps, err := loadSigningKeypairs(opts.keyPaths, opts.kids)
	if err != nil {
		return err
	}

	if !opts.multi {
		if len(kps) != 1 {
			return fmt.Errorf("compact tokens require exactly one --key, got %d", len(kps))
		}
		token, err := onejwt.MakeJWT(claimSet, kps[0])
		if err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}
		fmt.Fprintln(out, token)
		return nil
	}

	asKeypairs := make([]keypair.Keypair, len(kps))
	for i, kp := range kps {
		asKeypairs[i] = kp
	}
	envelope, err := onejws.MakeJWS(claimSet, asKeypairs)
	if err != nil {
		return fmt.Errorf("failed to mint envelope: %w", err)
	}
	fmt.Fprintln(out, envelope)
	return nil
}

// loadSigningKeypairs loads one *keypair.ECKeypair per path in keyPaths and
// assigns kids[i] as its identity when present.
func loadSigningKeypairs(keyPaths, kids []string) ([]*keypair.ECKeypair, error) {
	kps := make([]*keypair.ECKeypair, 0, len(keyPaths))
	for i, path := range keyPaths {
		kp, err := loadSecretKey(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load key %q: %w", path, err)
		}
		if i < len(kids) {
			kp.SetIdentity(kids[i])
		}
		kps = append(kps, kp)
	}
	return kps, nil
}
