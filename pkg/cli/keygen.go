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
	"os"

	"github.com/spf13/cobra"

	"github.com/oneidconnect/oneid-go/pkg/keypair"
)

// newKeygenCmd creates a new subcommand for generating a P-256 keypair.
func newKeygenCmd() *cobra.Command {
	var secretOut, publicOut string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new P-256 keypair",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keypair.Generate()
			if err != nil {
				return fmt.Errorf("failed to generate keypair: %w", err)
			}

			secretPEM, err := kp.SecretPEM()
			if err != nil {
				return err
			}
			publicPEM, err := kp.PublicPEM()
			if err != nil {
				return err
			}

			if secretOut == "" {
				secretOut = "oneid-secret.pem"
			}
			if publicOut == "" {
				publicOut = "oneid-public.pem"
			}

			if err := os.WriteFile(secretOut, secretPEM, 0o600); err != nil {
				return fmt.Errorf("failed to write secret key: %w", err)
			}
			if err := os.WriteFile(publicOut, publicPEM, 0o644); err != nil {
				return fmt.Errorf("failed to write public key: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", secretOut, publicOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&secretOut, "out-secret", "", "output path for the secret key (default oneid-secret.pem)")
	cmd.Flags().StringVar(&publicOut, "out-public", "", "output path for the public key (default oneid-public.pem)")

	return cmd
}
