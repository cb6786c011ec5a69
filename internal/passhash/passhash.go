// Package passhash implements the credential hashing scheme used on both
// sides of the wire: PBKDF2-HMAC-SHA256 with a random per-password salt,
// encoded as "salt:hexHash". A legacy fast-digest variant is kept only so
// existing rows produced by the old serverless runtime remain verifiable.
package passhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/authdesk/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 iteration count. Do not lower it: stored
	// hashes embed no iteration count, so every verifier must agree.
	Iterations = 100_000

	saltBytes = 16
	keyLen    = sha256.Size
)

// GenerateSalt returns a fresh random salt, hex-encoded (32 characters).
func GenerateSalt() string {
	s, err := common.MakeRandHexString(saltBytes)
	if err != nil {
		panic(err)
	}
	return s
}

// Hash derives a salted hash of password with a freshly generated salt and
// returns the combined "salt:hexHash" form.
func Hash(password string) string {
	return HashWithSalt(password, GenerateSalt())
}

// HashWithSalt derives the hash of password keyed by the given salt string.
// The salt participates as its literal UTF-8 bytes, matching the stored
// format produced by every other component.
func HashWithSalt(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, keyLen, sha256.New)
	return salt + ":" + hex.EncodeToString(key)
}

// Verify recomputes the hash of password using the salt embedded in stored
// and compares digests in constant time. Malformed input yields false,
// never an error.
func Verify(password, stored string) bool {
	salt, digest, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || digest == "" {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), Iterations, keyLen, sha256.New)
	return hmac.Equal(got, want)
}

// LegacyDigest is the weak single-round digest the old serverless backend
// used: SHA-256 over password concatenated with salt, hex-encoded. New rows
// must use Hash/HashWithSalt; this exists for compatibility verification of
// rows written before the migration.
func LegacyDigest(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// LegacyVerify checks password against a legacy digest in constant time.
func LegacyVerify(password, salt, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(password + salt))
	return hmac.Equal(sum[:], want)
}
