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
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oneidconnect/oneid-go/pkg/claims"
	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/onejws"
	"github.com/oneidconnect/oneid-go/pkg/onejwt"
)

// subjectClaims is the shape verify decodes the standard "sub" claim into
// for the summary line, via claims.Decode. Callers needing the rest of the
// claim set still get it from the tabular output below.
type subjectClaims struct {
	Subject string `mapstructure:"sub"`
}

// verifyCmdOptions holds all the inputs and flags for the verify subcommand.
type verifyCmdOptions struct {
	token     string
	pubPaths  []string
	verifyAll bool
}

// newVerifyCmd creates a new subcommand for verifying tokens.
func newVerifyCmd() *cobra.Command {
	opts := &verifyCmdOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a compact token or multi-signature envelope",
		Long: strings.Trim(`
Verify a signed assertion passed via --token or piped to stdin. The output is
a tabular view of the decoded claim set, or any error that occurred.

For example:

    # Verify a compact token
    oneidctl verify --token "$TOKEN" --pub signer-pub.pem

    # Verify an envelope read from a pipe, requiring every listed signer
    cat envelope.json | oneidctl verify --token - --pub a-pub.pem --pub b-pub.pem
`, "\n"),
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifyCmd(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.token, "token", "t", "", `the token or envelope to verify, or "-" to read from stdin`)
	cmd.MarkFlagRequired("token") //nolint // not expect err
	flags.StringSliceVar(&opts.pubPaths, "pub", nil, "path to a PEM-encoded EC public key (repeatable; for an envelope, the i-th --pub is matched to the i-th signer); omit for structure-only verification")
	flags.BoolVar(&opts.verifyAll, "verify-all", true, "require every --pub to match a signer (envelopes only)")

	return cmd
}

func runVerifyCmd(cmd *cobra.Command, opts *verifyCmdOptions) error {
	if opts.token == "-" {
		buf, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1_000))
		if err != nil {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
		opts.token = strings.TrimSpace(string(buf))
	}

	kps := make([]*keypair.ECKeypair, 0, len(opts.pubPaths))
	for _, path := range opts.pubPaths {
		kp, err := loadPublicKey(path)
		if err != nil {
			return fmt.Errorf("failed to load public key %q: %w", path, err)
		}
		kps = append(kps, kp)
	}

	var claimSet map[string]any
	var err error
	if strings.HasPrefix(strings.TrimSpace(opts.token), "{") {
		// Public key files carry no kid, so each --pub takes the kid of the
		// envelope signer at the same position.
		if len(kps) > 0 {
			kids, err := onejws.GetJWSKeyIDs(opts.token)
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			for i := 0; i < len(kps) && i < len(kids); i++ {
				kps[i].SetIdentity(kids[i])
			}
		}
		asKeypairs := make([]keypair.Keypair, len(kps))
		for i, kp := range kps {
			asKeypairs[i] = kp
		}
		claimSet, err = onejws.VerifyJWS(opts.token, asKeypairs, onejws.WithVerifyAll(opts.verifyAll))
	} else {
		var kp keypair.Keypair
		if len(kps) > 0 {
			kp = kps[0]
		}
		claimSet, err = onejwt.VerifyJWT(opts.token, kp)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "-------RESULT-------")
	fmt.Fprintln(w, "validated!")

	var sub subjectClaims
	if err := claims.Decode(claimSet, &sub); err == nil && sub.Subject != "" {
		fmt.Fprintf(w, "subject\t%s\n", sub.Subject)
	}

	fmt.Fprintln(w, "------CLAIMS--------")

	keys := make([]string, 0, len(claimSet))
	for k := range claimSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%v\n", k, claimSet[k])
	}
	return w.Flush()
}
