package claims

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

func newTestValidator(now time.Time) (*Validator, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(now)
	return &Validator{
		Clock:         mock,
		Leeway:        DefaultLeeway,
		NonceValidity: DefaultNonceValidity,
	}, mock
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, mock := newTestValidator(now)

	within := map[string]any{"exp": float64(now.Add(-DefaultLeeway + 2*time.Second).Unix())}
	if err := v.Validate(within); err != nil {
		t.Fatalf("Validate() within leeway: %v", err)
	}

	mock.Add(DefaultLeeway + 4*time.Second)
	if err := v.Validate(within); err == nil {
		t.Fatal("expected InvalidClaims after leeway elapses")
	} else if kind, _ := oneiderr.Of(err); kind != oneiderr.InvalidClaims {
		t.Fatalf("kind = %v, want InvalidClaims", kind)
	}
}

func TestValidateExpiryAlreadyExpired(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, _ := newTestValidator(now)

	claims := map[string]any{"exp": float64(now.Add(-DefaultLeeway - time.Second).Unix())}
	if err := v.Validate(claims); err == nil {
		t.Fatal("expected InvalidClaims for exp older than leeway")
	}
}

func TestValidateNotBefore(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, _ := newTestValidator(now)

	claims := map[string]any{"nbf": float64(now.Add(180 * time.Second).Unix())}
	if err := v.Validate(claims); err == nil {
		t.Fatal("expected InvalidClaims for nbf far in the future")
	}
}

func TestValidateNonIntegerExpNbfIsLenient(t *testing.T) {
	t.Parallel()
	v, _ := newTestValidator(time.Now())

	claims := map[string]any{"exp": "not-a-number", "nbf": []int{1, 2, 3}}
	if err := v.Validate(claims); err != nil {
		t.Fatalf("Validate() should ignore non-numeric exp/nbf, got: %v", err)
	}
}

func TestValidateNonce(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, _ := newTestValidator(now)

	good, err := MintNonce(now)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(map[string]any{"jti": good}); err != nil {
		t.Fatalf("Validate() good nonce: %v", err)
	}

	wrongPrefix := "002" + now.Format(nonceTimestampLayout) + "123456"
	if err := v.Validate(map[string]any{"jti": wrongPrefix}); err == nil {
		t.Fatal("expected rejection of non-001 prefix")
	}

	expired := "001" + now.Add(-24*time.Hour).Format(nonceTimestampLayout) + "123456"
	if err := v.Validate(map[string]any{"jti": expired}); err == nil {
		t.Fatal("expected rejection of expired nonce")
	}

	malformed := "001bad-timestamp"
	if err := v.Validate(map[string]any{"jti": malformed}); err == nil {
		t.Fatal("expected rejection of malformed nonce")
	}
}

func TestValidateNonceReplayWithCache(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v, _ := newTestValidator(now)
	v.SeenNonces = NewSeenNonceCache(time.Hour)

	nonce, err := MintNonce(now)
	if err != nil {
		t.Fatal(err)
	}

	if err := v.Validate(map[string]any{"jti": nonce}); err != nil {
		t.Fatalf("first use should succeed: %v", err)
	}
	if err := v.Validate(map[string]any{"jti": nonce}); err == nil {
		t.Fatal("replayed nonce should be rejected when a SeenNonceCache is set")
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	type subjectClaims struct {
		Subject string   `mapstructure:"sub"`
		Scopes  []string `mapstructure:"scopes"`
	}

	claimSet := map[string]any{
		"sub":    "alice",
		"scopes": []any{"read", "write"},
	}

	var out subjectClaims
	if err := Decode(claimSet, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Subject != "alice" {
		t.Fatalf("Subject = %q, want %q", out.Subject, "alice")
	}
	if len(out.Scopes) != 2 || out.Scopes[0] != "read" || out.Scopes[1] != "write" {
		t.Fatalf("Scopes = %v, want [read write]", out.Scopes)
	}
}

func TestDecodeRejectsIncompatibleShape(t *testing.T) {
	t.Parallel()

	type subjectClaims struct {
		Subject int `mapstructure:"sub"`
	}

	var out subjectClaims
	err := Decode(map[string]any{"sub": "not-a-number"}, &out)
	if err == nil {
		t.Fatal("expected error decoding a string claim into an int field")
	}
	if kind, _ := oneiderr.Of(err); kind != oneiderr.InvalidClaims {
		t.Fatalf("kind = %v, want InvalidClaims", kind)
	}
}

func TestWithDefaultIssuer(t *testing.T) {
	t.Parallel()

	claims := map[string]any{}
	WithDefaultIssuer(claims)
	if claims["iss"] != DefaultIssuer {
		t.Fatalf("iss = %v, want %v", claims["iss"], DefaultIssuer)
	}

	claims2 := map[string]any{"iss": "someone-else"}
	WithDefaultIssuer(claims2)
	if claims2["iss"] != "someone-else" {
		t.Fatalf("iss was overwritten: %v", claims2["iss"])
	}
}
