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

// Package cli implements the commands for the oneidctl CLI.
package cli

import (
	"context"
	"fmt"
	"os"
)

const (
	// Issuer names the CLI. No command writes it into "iss": mint leaves a
	// missing "iss" to the engines, which set claims.DefaultIssuer.
	Issuer = "oneidctl"
)

// Execute executes the CLI.
func Execute(ctx context.Context) {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
		os.Exit(1)
	}
}
