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

package claims

import (
	"time"

	"github.com/abcxyz/pkg/cache"
)

// SeenNonceCache is an opt-in bounded cache of accepted nonces, giving
// replay protection on top of the stateless timestamp policy. It never
// replaces the timestamp check; Validator consults it only after a nonce has
// already passed §4.5's window test.
type SeenNonceCache struct {
	seen *cache.Cache[struct{}]
}

// NewSeenNonceCache builds a cache that forgets a nonce once expireAfter has
// elapsed. expireAfter should be at least NonceValidity+Leeway, since a
// nonce cannot be replayed once its own window has lapsed anyway.
func NewSeenNonceCache(expireAfter time.Duration) *SeenNonceCache {
	return &SeenNonceCache{seen: cache.New[struct{}](expireAfter)}
}

// MarkSeen records jti as seen and reports whether it was already present.
func (c *SeenNonceCache) MarkSeen(jti string) bool {
	if _, hit := c.seen.Lookup(jti); hit {
		return true
	}
	// Set can only fail on a negative expiry, which NewSeenNonceCache's
	// caller already guarded against at construction time.
	_ = c.seen.Set(jti, struct{}{})
	return false
}

// Size reports how many nonces are currently tracked.
func (c *SeenNonceCache) Size() int {
	return c.seen.Size()
}
