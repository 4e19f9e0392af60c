package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// =========================================================================
// HELPER
// =========================================================================

// newTestPasswordService returns a PasswordService with bcrypt cost 4.
// Cost 4 is the minimum allowed by the bcrypt library. This makes tests
// run in milliseconds instead of ~250ms each.
func newTestPasswordService(t *testing.T) *PasswordService {
	t.Helper()
	ps, err := NewPasswordServiceWithCost(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordServiceWithCost: %v", err)
	}
	return ps
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewPasswordService_DefaultCost(t *testing.T) {
	if got := NewPasswordService().Cost(); got != DefaultCost {
		t.Errorf("Cost() = %d, want %d", got, DefaultCost)
	}
}

func TestNewPasswordServiceWithCost_RejectsOutOfRange(t *testing.T) {
	for _, cost := range []int{0, 3, 32} {
		if _, err := NewPasswordServiceWithCost(cost); err == nil {
			t.Errorf("NewPasswordServiceWithCost(%d) should fail", cost)
		}
	}
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService(t)

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt hashes always start with $2a$ or $2b$
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
	if strings.Contains(hash, "password123") {
		t.Error("Hash() output contains the plaintext")
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService(t)

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
	if !ps.Verify(hash1, "same-password") || !ps.Verify(hash2, "same-password") {
		t.Error("Verify() should accept both salted hashes")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	ps := newTestPasswordService(t)

	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes+1)); err == nil {
		t.Fatal("Hash() should return an error for passwords longer than 72 bytes")
	}
}

func TestHash_AcceptsPasswordExactly72Bytes(t *testing.T) {
	ps := newTestPasswordService(t)

	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got error: %v", err)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify(t *testing.T) {
	ps := newTestPasswordService(t)

	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	cases := []struct {
		name      string
		hash      string
		plaintext string
		want      bool
	}{
		{"correct password", hash, "correct-horse-battery-staple", true},
		{"wrong password", hash, "correct-horse-battery-stapler", false},
		{"empty password", hash, "", false},
		{"garbage hash fails closed", "not-a-valid-bcrypt-hash", "password", false},
		{"empty hash fails closed", "", "", false},
		{"truncated hash fails closed", hash[:len(hash)-5], "correct-horse-battery-staple", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ps.Verify(tc.hash, tc.plaintext); got != tc.want {
				t.Errorf("Verify() = %v, want %v", got, tc.want)
			}
		})
	}
}

// =========================================================================
// ROUND-TRIP TEST
// =========================================================================

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService(t)

	cases := []struct {
		name     string
		password string
	}{
		{"simple alphanumeric", "hello123"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
		{"single space", " "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", tc.password, err)
			}
			if !ps.Verify(hash, tc.password) {
				t.Errorf("Verify() failed for %q", tc.password)
			}
		})
	}
}
