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

// Package config loads and validates the tunables of the token and envelope
// engines for a process embedding them. The engines do not read a Config
// themselves, and the oneidctl CLI does not load one.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// CurrentVersion is the only config schema version this build accepts.
	CurrentVersion = 1

	LeewayDefault        = 60 * time.Second
	NonceValidityDefault = 120 * time.Second
	DefaultIssuerDefault = "oneID"
	NonceCacheTTLDefault = time.Hour
)

// Config is the full oneID engine configuration: the claims-validation
// tunables plus whether replay protection is enabled.
type Config struct {
	// Version is the version of the config.
	Version uint8 `yaml:"version,omitempty" env:"VERSION,overwrite"`

	// Leeway is the grace period applied past a token's "exp".
	Leeway time.Duration `yaml:"leeway,omitempty" env:"LEEWAY,overwrite"`

	// NonceValidity is how far in the past an issuer-minted "jti" timestamp
	// may fall before being rejected as expired.
	NonceValidity time.Duration `yaml:"nonce_validity,omitempty" env:"NONCE_VALIDITY,overwrite"`

	// DefaultIssuer is injected into claim sets that omit "iss".
	DefaultIssuer string `yaml:"default_issuer,omitempty" env:"DEFAULT_ISSUER,overwrite"`

	// NonceReplayProtection turns on the in-memory seen-nonce cache.
	NonceReplayProtection bool `yaml:"nonce_replay_protection,omitempty" env:"NONCE_REPLAY_PROTECTION,overwrite"`

	// NonceCacheTTL is how long a seen nonce is remembered when
	// NonceReplayProtection is enabled.
	NonceCacheTTL time.Duration `yaml:"nonce_cache_ttl,omitempty" env:"NONCE_CACHE_TTL,overwrite"`

	// VerifyAllSignatures holds a "verify_all" mode for callers to pass to
	// onejws.WithVerifyAll. Nothing in this module applies it on its own:
	// SetDefault leaves it false, and onejws.VerifyJWS defaults to true.
	VerifyAllSignatures bool `yaml:"verify_all_signatures,omitempty" env:"VERIFY_ALL_SIGNATURES,overwrite"`
}

// Validate checks if the config is valid, after filling in defaults.
func (cfg *Config) Validate() error {
	cfg.SetDefault()
	var err *multierror.Error
	if cfg.Version != CurrentVersion {
		err = multierror.Append(err, fmt.Errorf("unexpected version %d want %d", cfg.Version, CurrentVersion))
	}
	if cfg.Leeway < 0 {
		err = multierror.Append(err, fmt.Errorf("leeway must not be negative: %s", cfg.Leeway))
	}
	if cfg.NonceValidity <= 0 {
		err = multierror.Append(err, fmt.Errorf("nonce validity must be positive: %s", cfg.NonceValidity))
	}
	if cfg.DefaultIssuer == "" {
		err = multierror.Append(err, fmt.Errorf("default issuer must not be blank"))
	}
	return err.ErrorOrNil()
}

// SetDefault fills in zero-valued fields with their defaults.
func (cfg *Config) SetDefault() {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = LeewayDefault
	}
	if cfg.NonceValidity == 0 {
		cfg.NonceValidity = NonceValidityDefault
	}
	if cfg.DefaultIssuer == "" {
		cfg.DefaultIssuer = DefaultIssuerDefault
	}
	if cfg.NonceCacheTTL == 0 {
		cfg.NonceCacheTTL = NonceCacheTTLDefault
	}
}

// Load reads a YAML config body, applies ONEID_-prefixed environment
// overrides from the OS environment, and validates the result.
func Load(ctx context.Context, b []byte) (*Config, error) {
	return loadFromLookuper(ctx, b, envconfig.OsLookuper())
}

func loadFromLookuper(ctx context.Context, b []byte, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed parsing config yaml: %w", err)
		}
	}

	l := envconfig.PrefixLookuper("ONEID_", lookuper)
	if err := envconfig.ProcessWith(ctx, cfg, l); err != nil {
		return nil, fmt.Errorf("failed processing env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed validating config: %w", err)
	}

	return cfg, nil
}
