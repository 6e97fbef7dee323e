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
	"strings"

	"github.com/spf13/cobra"

	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/onejws"
)

// extendCmdOptions holds all the inputs and flags for the extend subcommand.
type extendCmdOptions struct {
	token       string
	keyPaths    []string
	kids        []string
	existingKid string
}

// newExtendCmd creates a new subcommand for adding signers to an envelope.
func newExtendCmd() *cobra.Command {
	opts := &extendCmdOptions{}

	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Add additional signatures to an envelope or compact token",
		Long: strings.Trim(`
Append one or more new signers to an existing multi-signature envelope, or
promote a compact token into one.

For example:

    # Add a co-signer to an existing envelope
    oneidctl extend --token "$ENVELOPE" --key bob.pem --kid bob

    # Promote a compact token, keeping its original signature unchanged
    oneidctl extend --token "$TOKEN" --key bob.pem --kid bob \
        --existing-kid alice
`, "\n"),
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtendCmd(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.token, "token", "t", "", `the envelope or compact token to extend, or "-" to read from stdin`)
	cmd.MarkFlagRequired("token") //nolint // not expect err
	flags.StringSliceVar(&opts.keyPaths, "key", nil, "path to a new signer's PEM-encoded secret key (repeatable)")
	flags.StringSliceVar(&opts.kids, "kid", nil, "key id for the corresponding --key (repeatable)")
	flags.StringVar(&opts.existingKid, "existing-kid", "", "kid to record for a promoted compact token's original signature")

	return cmd
}

func runExtendCmd(cmd *cobra.Command, opts *extendCmdOptions) error {
	if opts.token == "-" {
		buf, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1_000))
		if err != nil {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
		opts.token = strings.TrimSpace(string(buf))
	}

	additional, err := loadSigningKeypairs(opts.keyPaths, opts.kids)
	if err != nil {
		return err
	}
	asKeypairs := make([]keypair.Keypair, len(additional))
	for i, kp := range additional {
		asKeypairs[i] = kp
	}

	var jwsOpts []onejws.Option
	if opts.existingKid != "" {
		jwsOpts = append(jwsOpts, onejws.WithExistingKid(opts.existingKid))
	}

	extended, err := onejws.ExtendJWSSignatures(opts.token, asKeypairs, jwsOpts...)
	if err != nil {
		return fmt.Errorf("failed to extend signatures: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), extended)
	return nil
}
