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
	"os"

	"github.com/abcxyz/pkg/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "oneidctl",
		Short:         "oneidctl mints and verifies signed JSON assertions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				os.Setenv("ONEIDCTL_LOG_LEVEL", "debug")
			}
			logger := logging.NewFromEnv("ONEIDCTL_")
			ctx := logging.WithLogger(cmd.Context(), logger)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newMintCmd(),
		newVerifyCmd(),
		newExtendCmd(),
		newKeyIDsCmd(),
		newKeygenCmd(),
	)

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	return cmd
}
