package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/letterbox/letterbox/internal/secret"
)

var testKey = secret.New("test-hash-secret-0123456789")

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple", testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// Verify PHC format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", hash)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d", len(parts))
	}

	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashPassword_NeverContainsPlaintext(t *testing.T) {
	t.Parallel()

	password := "plaintextpassword"
	hash, err := HashPassword(password, testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if strings.Contains(hash, password) {
		t.Error("hash must not embed the plaintext password")
	}
}

func TestHashPassword_MissingKey(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("password", secret.String{}); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}

func TestHashPassword_Uniqueness(t *testing.T) {
	t.Parallel()

	password := "the_same_password_12345"

	hash1, err := HashPassword(password, testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	hash2, err := HashPassword(password, testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// Same password should produce different hashes (different salts)
	if hash1 == hash2 {
		t.Error("Same password should produce different hashes due to random salt")
	}

	if !CheckPassword(password, hash1, testKey) || !CheckPassword(password, hash2, testKey) {
		t.Error("Both hashes should verify correctly")
	}
}

func TestVerifyPassword_Correct(t *testing.T) {
	t.Parallel()

	password := "s3cret-operator-password"

	hash, err := HashPassword(password, testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	match, err := VerifyPassword(password, hash, testKey)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !match {
		t.Error("Correct password should match")
	}
}

func TestVerifyPassword_Incorrect(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-operator-password", testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	// Wrong password should not verify (but no error)
	match, err := VerifyPassword("wrong-operator-password", hash, testKey)
	if err != nil {
		t.Fatalf("VerifyPassword should not return error for wrong password: %v", err)
	}
	if match {
		t.Error("Wrong password should not match")
	}
}

func TestVerifyPassword_WrongKey(t *testing.T) {
	t.Parallel()

	password := "s3cret-operator-password"
	hash, err := HashPassword(password, testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if CheckPassword(password, hash, secret.New("a-different-secret-key")) {
		t.Error("hash must not verify under a different server key")
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"wrong format", "not-a-hash", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"wrong part count", "$argon2id$v=19", ErrInvalidHash},
		{"leading garbage", "x$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJlc29tZWhhc2g", ErrInvalidHash},
		{"zero time", "$argon2id$v=19$m=65536,t=0,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJlc29tZWhhc2g", ErrInvalidHash},
		{"zero threads", "$argon2id$v=19$m=65536,t=3,p=0$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJlc29tZWhhc2g", ErrInvalidHash},
		{"huge memory", "$argon2id$v=19$m=99999999,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJlc29tZWhhc2g", ErrInvalidHash},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=4$!!!$c29tZWhhc2hoZXJlc29tZWhhc2g", ErrInvalidHash},
		{"empty hash", "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := VerifyPassword("password", tt.hash, testKey)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyPassword with %q error = %v, want %v", tt.name, err, tt.wantErr)
			}
			if match {
				t.Error("malformed hash must never match")
			}
			if CheckPassword("password", tt.hash, testKey) {
				t.Error("CheckPassword must return false for malformed hash")
			}
		})
	}
}

func TestVerifyPassword_WrongVersion(t *testing.T) {
	t.Parallel()

	// v=18 instead of v=19
	invalidVersionHash := "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJlc29tZWhhc2g"

	match, err := VerifyPassword("password", invalidVersionHash, testKey)
	if !errors.Is(err, ErrIncompatibleVersion) {
		t.Errorf("Expected ErrIncompatibleVersion, got: %v", err)
	}
	if match {
		t.Error("Should not match with incompatible version")
	}
}

func TestVerifyPassword_MissingKey(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("password", testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	match, err := VerifyPassword("password", hash, secret.String{})
	if !errors.Is(err, ErrMissingKey) || match {
		t.Errorf("expected (false, ErrMissingKey), got (%v, %v)", match, err)
	}
}

// Not parallel: swaps the package-level KDF.
func TestVerifyPassword_BackendPanic(t *testing.T) {
	hash, err := HashPassword("password", testKey)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	original := idKey
	t.Cleanup(func() { idKey = original })
	idKey = func(password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
		panic("argon2: out of memory")
	}

	match, err := VerifyPassword("password", hash, testKey)
	if !errors.Is(err, ErrHashBackend) {
		t.Errorf("expected ErrHashBackend, got %v", err)
	}
	if match {
		t.Error("backend failure must never match")
	}
	if CheckPassword("password", hash, testKey) {
		t.Error("CheckPassword must return false on backend failure")
	}
}
