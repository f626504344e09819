package credstore

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/pbkdf2"
)

// MinIterations is the lowest PBKDF2 iteration count the codec will use.
const MinIterations = 4096

const (
	saltBytes = 16
	keyBytes  = 32
)

// Codec derives salts and password hashes. It does no I/O.
type Codec struct {
	iterations int
}

// NewCodec returns a codec using the given iteration count, raised to
// MinIterations when lower.
func NewCodec(iterations int) Codec {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return Codec{iterations: iterations}
}

// Iterations returns the effective PBKDF2 iteration count
func (c Codec) Iterations() int {
	if c.iterations < MinIterations {
		return MinIterations
	}
	return c.iterations
}

// Salt returns 16 random bytes hex encoded
func (c Codec) Salt() string {
	return randomHex(saltBytes)
}

// Token returns a fresh verification token
func (c Codec) Token() string {
	return randomHex(saltBytes)
}

// Hash derives the hex encoded PBKDF2-SHA256 key for the pair
// [username, password] using salt.
func (c Codec) Hash(username, password, salt string) string {
	key := pbkdf2.Key(credentialTuple(username, password), []byte(salt), c.Iterations(), keyBytes, sha256.New)
	return hex.EncodeToString(key)
}

// Matches hashes password with salt and compares it against hash
func (c Codec) Matches(username, password, salt, hash string) bool {
	candidate := c.Hash(username, password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// credentialTuple encodes [username, password] as a compact JSON array.
func credentialTuple(username, password string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding a []string cannot fail
	_ = enc.Encode([]string{username, password})
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("credstore: system random source failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
