// Package auth provides credential hashing and token generation.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/letterbox/letterbox/internal/secret"
)

// Argon2id parameters (OWASP 2024 recommended minimum).
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Bounds accepted when decoding a stored hash. Anything outside is treated as
// a malformed hash rather than handed to the KDF.
const (
	maxMemory  = 256 * 1024 // 256 MB
	maxTime    = 10
	maxThreads = 16
	minKeyLen  = 16
	maxKeyLen  = 64
	minSaltLen = 8
)

// idKey is the argon2id KDF. Tests swap it to exercise backend failures.
var idKey = argon2.IDKey

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrHashBackend indicates the key derivation itself failed.
	ErrHashBackend = errors.New("password hash backend failure")
	// ErrMissingKey indicates no server secret was supplied.
	ErrMissingKey = errors.New("hash secret key is empty")
)

// HashPassword creates a keyed Argon2id hash of the given password.
// The password is first run through HMAC-SHA256 under the server key, so the
// stored hash cannot be checked without that key.
// Returns the hash in PHC string format.
func HashPassword(password string, key secret.String) (string, error) {
	if key.IsZero() {
		return "", ErrMissingKey
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := idKey(
		peppered(password, key),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		b64Salt,
		b64Hash,
	), nil
}

// VerifyPassword checks if the password matches the keyed hash.
// It never panics: a malformed hash or a failure inside the KDF is reported
// as (false, err). A wrong password is (false, nil).
func VerifyPassword(password, encodedHash string, key secret.String) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("%w: %v", ErrHashBackend, r)
		}
	}()

	if key.IsZero() {
		return false, ErrMissingKey
	}

	p, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computedHash := idKey(
		peppered(password, key),
		p.salt,
		p.time,
		p.memory,
		p.threads,
		uint32(len(p.hash)),
	)

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare(computedHash, p.hash) == 1, nil
}

// CheckPassword reports whether password matches encodedHash under key.
// Every failure, including a corrupt hash, yields false.
func CheckPassword(password, encodedHash string, key secret.String) bool {
	ok, err := VerifyPassword(password, encodedHash, key)
	return err == nil && ok
}

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

// decodeHash parses and bounds-checks a PHC string.
func decodeHash(encodedHash string) (*hashParams, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, ErrInvalidHash
	}

	if parts[0] != "" || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleVersion
	}

	var p hashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, ErrInvalidHash
	}
	if p.memory == 0 || p.memory > maxMemory ||
		p.time == 0 || p.time > maxTime ||
		p.threads == 0 || p.threads > maxThreads {
		return nil, ErrInvalidHash
	}

	var err error
	p.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(p.salt) < minSaltLen {
		return nil, ErrInvalidHash
	}

	p.hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(p.hash) < minKeyLen || len(p.hash) > maxKeyLen {
		return nil, ErrInvalidHash
	}

	return &p, nil
}

func peppered(password string, key secret.String) []byte {
	mac := hmac.New(sha256.New, []byte(key.Expose()))
	mac.Write([]byte(password))
	return mac.Sum(nil)
}
