package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id work factors, tuned for interactive latency.
const (
	argonMemoryKiB = 15000
	argonTime      = 2
	argonThreads   = 1
	argonSaltLen   = 16
	argonKeyLen    = 32
)

// secretLength is the length of a plaintext API token secret.
const secretLength = 25

const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecret returns a cryptographically random alphanumeric secret.
// The value is shown to the client exactly once; only its hash is stored.
// Bytes outside the largest multiple of the charset size are rejected so
// every character is equally likely.
func GenerateSecret() (string, error) {
	const limit = byte(len(secretCharset) * (256 / len(secretCharset)))

	out := make([]byte, 0, secretLength)
	buf := make([]byte, secretLength)
	for len(out) < secretLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate secret: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, secretCharset[int(b)%len(secretCharset)])
			if len(out) == secretLength {
				break
			}
		}
	}
	return string(out), nil
}

// HashSecret computes a salted Argon2id hash of the secret, encoded in the
// standard $argon2id$... form. A fresh salt is generated per call, so two
// hashes of the same secret never compare equal as strings.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKiB, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifySecret checks a candidate secret against a stored hash.
// It returns ErrInvalidCredentials both on mismatch and on a malformed
// stored hash; callers must not be able to tell the cases apart.
func VerifySecret(candidate, encodedHash string) error {
	salt, key, memory, time, threads, err := decodeSecretHash(encodedHash)
	if err != nil {
		return ErrInvalidCredentials
	}

	computed := argon2.IDKey([]byte(candidate), salt, time, memory, threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(computed, key) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// decodeSecretHash splits a $argon2id$v=19$m=...,t=...,p=...$salt$key string
// into its components.
func decodeSecretHash(encoded string) (salt, key []byte, memory uint32, time uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id hash")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id params: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id salt: %w", err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id key: %w", err)
	}
	return salt, key, memory, time, threads, nil
}
