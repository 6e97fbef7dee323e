package onejwt

import (
	"encoding/base64"
	"testing"

	"github.com/oneidconnect/oneid-go/pkg/keypair"
	"github.com/oneidconnect/oneid-go/pkg/oneiderr"
)

// fixedVectorKeyDER is a PKCS8-encoded P-256 private key, carried over
// byte-for-byte from the historical test fixture these vectors were
// generated against.
const fixedVectorKeyDER = "MIGHAgEAMBMGByqGSM49AgEGCCqGSM49AwEHBG0wawIBAQQgOiXcCrreAqzw3xOT" +
	"L44O8DFyDfBAPQgZ0AmPGZfWmMShRANCAARD66FPRWFIFrNcn+DjLTSb8lP3pha3" +
	"joBvC7Cf4JR/LP7lECAc0mNfokw84+pLurAkP2rG1Y63n9KPwntflfRD="

// goodVectors were all signed with the key above, across two historical
// header orderings ({"typ",...,"alg"} and {"alg",...,"typ"}), both written
// with a space after each ':' and ',' unlike HeaderJSON, to confirm header
// validation compares decoded JSON, not raw bytes.
var goodVectors = []string{
	"eyJ0eXAiOiAiSldUIiwgImFsZyI6ICJFUzI1NiJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgw65udGVyw6lzdGluZyBjaGFyYWN0ZXJzIfCfmIAiLCAiaXNzIjog" +
		"Im9uZUlEIn0." +
		"Y5_T3I4fKvDaV7C9iRO4CAE7ZyVDZSJaKb1lE8oefsHc9_7BdNzz9qcfS8DFutNG" +
		"XPHp073AdkirIHiDKNSmmA",
	"eyJ0eXAiOiAiSldUIiwgImFsZyI6ICJFUzI1NiJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgw65udGVyw6lzdGluZyBjaGFyYWN0ZXJzIfCfmIAiLCAiaXNzIjog" +
		"Im9uZUlEIn0." +
		"qgD5uRmnhAyymQ1APU8Zy0WBycw2FNleym6AB31GfELgpkPaeZJqckOKeNT5c6yT" +
		"h99wJHi0PjXtblD6ddlWzA",
	"eyJ0eXAiOiAiSldUIiwgImFsZyI6ICJFUzI1NiJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgw65udGVyw6lzdGluZyBjaGFyYWN0ZXJzIfCfmIAiLCAiaXNzIjog" +
		"Im9uZUlEIn0." +
		"Yaj0JiCMBAQslap3WiBTSnNAZUEQZ5rACI_oHbP5gKCXGo_bUVoSvGygUMVmDipn" +
		"mxZmqQpVYEXNqTCKVVKLRQ",
	"eyJhbGciOiAiRVMyNTYiLCAidHlwIjogIkpXVCJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgXHUwMGVlbnRlclx1MDBlOXN0aW5nIGNoYXJhY3RlcnMhXHVkODNk" +
		"XHVkZTAwIiwg" +
		"ImlzcyI6ICJvbmVJRCJ9.eX1ob01UqDOoFY0IVKHw7ycl7jVjYb7UWhWTZZD1MaK" +
		"GSmQ9XuNgica4USLbQlVLt5_n1ihar2lAedpgw5QGgg",
	"eyJhbGciOiAiRVMyNTYiLCAidHlwIjogIkpXVCJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgXHUwMGVlbnRlclx1MDBlOXN0aW5nIGNoYXJhY3RlcnMhXHVkODNk" +
		"XHVkZTAwIiwg" +
		"ImlzcyI6ICJvbmVJRCJ9.d79RLEQ00KDsZ81bZ9lN-SMTKTXEwJDaIjEkkfa1Iho" +
		"zWKcf6vHwA0iqZxjYF6WD-8oErFlEpnTSw4pIG-b1Yw",
	"eyJhbGciOiAiRVMyNTYiLCAidHlwIjogIkpXVCJ9." +
		"eyJjbGFpbSI6ICJ0aGlzIGlzIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3" +
		"aXRoIHNvbWUgXHUwMGVlbnRlclx1MDBlOXN0aW5nIGNoYXJhY3RlcnMhXHVkODNk" +
		"XHVkZTAwIiwg" +
		"ImlzcyI6ICJvbmVJRCJ9.P2GvYyl34tQb47HC7qIJZ8yEh4T8tzzCgjLjgzJMFSm" +
		"3BwK-svxjm3O09RWB_6dPAGYrN2RKYVwdFdQqpWtKeA",
	"eyJhbGciOiAiRVMyNTYiLCAidHlwIjogIkpXVCJ9." +
		"eyJpc3MiOiAib25lSUQiLCAiY2xhaW0iOiAidGhpcyBpcyBhIGRlY2VudGx5IGxv" +
		"bmcgdGVzdCBzdHJpbmcgd2l0aCBzb21lIFx1MDBlZW50ZXJcdTAwZTlzdGluZyBj" +
		"aGFyYWN0ZXJz" +
		"ITpncmlubmluZzoifQ.kSlrw28fvkDYE0BASk-qqdiBYJLzFdkkZLIvbRoEUNr0o" +
		"y3C0ZmKy1Lx8zkGMdS2HQCZ49y_7W03Merch45s-g",
}

// badVectors were signed with a different private key than
// fixedVectorKeyDER; they must fail signature verification under it.
var badVectors = []string{
	"eyJhbGciOiAiRVMyNTYiLCAidHlwIjogIkpXVCJ9.eyJjbGFpbSI6ICJ0aGlzIGl" +
		"zIGEgZGVjZW50bHkgbG9uZyB0ZXN0IHN0cmluZyB3aXRoIHNvbWUgw65udGVyw6l" +
		"zdGluZyBjaGFyYWN0ZXJzIfCfmIAiLCAiaXNzIjogIm9uZUlEIn0.MEYCIQCcozU" +
		"44vPzvyiBwyb0sM0N_fJ5bDnmub0tbFNSs-xtBAIhAK37PVBOkcckGg1fodFHnI7" +
		"kpohaDSFNlhmZUWvXJmIg",
}

func fixedVectorKeypair(t *testing.T) *keypair.ECKeypair {
	t.Helper()
	der, err := base64.StdEncoding.DecodeString(fixedVectorKeyDER)
	if err != nil {
		t.Fatalf("failed to decode fixture key: %v", err)
	}
	kp, err := keypair.FromSecretDER(der)
	if err != nil {
		t.Fatalf("FromSecretDER: %v", err)
	}
	return kp
}

func TestKnownGoodVectors(t *testing.T) {
	t.Parallel()
	kp := fixedVectorKeypair(t)

	for i, token := range goodVectors {
		if _, err := VerifyJWT(token, kp); err != nil {
			t.Errorf("vector %d: VerifyJWT failed: %v", i, err)
		}
	}
}

func TestKnownBadVectors(t *testing.T) {
	t.Parallel()
	kp := fixedVectorKeypair(t)

	for i, token := range badVectors {
		_, err := VerifyJWT(token, kp)
		if err == nil {
			t.Errorf("vector %d: expected verification failure, got success", i)
			continue
		}
		if kind, _ := oneiderr.Of(err); kind != oneiderr.InvalidSignature {
			t.Errorf("vector %d: kind = %v, want InvalidSignature", i, kind)
		}
	}
}
