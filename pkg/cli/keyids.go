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

	"github.com/oneidconnect/oneid-go/pkg/onejws"
)

// newKeyIDsCmd creates a new subcommand for listing an envelope's signer kids.
func newKeyIDsCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "key-ids",
		Short: "List the signer key ids carried by a multi-signature envelope",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "-" {
				buf, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1_000))
				if err != nil {
					return fmt.Errorf("failed to read envelope from stdin: %w", err)
				}
				token = strings.TrimSpace(string(buf))
			}

			kids, err := onejws.GetJWSKeyIDs(token)
			if err != nil {
				return fmt.Errorf("failed to read key ids: %w", err)
			}
			for _, kid := range kids {
				fmt.Fprintln(cmd.OutOrStdout(), kid)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", `the envelope to inspect, or "-" to read from stdin`)
	cmd.MarkFlagRequired("token") //nolint // not expect err

	return cmd
}
