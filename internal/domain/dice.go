package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// FairDice produces cryptographically secure die rolls with a commit-reveal
// scheme: the SHA-256 commitment is safe to disclose before the value, so a
// client can later check the server did not alter the roll.

const (
	// DiceMin and DiceMax bound a legal die value.
	DiceMin = 1
	DiceMax = 6

	// commitmentSecretBytes is the raw size of a commitment secret.
	commitmentSecretBytes = 32

	// rejectionBound is the largest multiple of 6 that fits in a byte.
	// Bytes at or above it are redrawn to avoid modulo bias.
	rejectionBound = 252
)

// DiceCommitment binds a die value to a secret before the value is revealed.
// Immutable once generated; the lifetime is a single roll.
type DiceCommitment struct {
	Secret     string // 64 hex chars, never disclosed before the reveal
	Value      int    // 1..6
	Commitment string // 64 hex chars, SHA-256 of "secret:value"
}

// Roll draws one uniformly distributed die value from the secure random
// source. A failing random source is a broken security assumption and panics.
func Roll() int {
	buf := make([]byte, 1)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("domain: secure random source unavailable: " + err.Error())
		}
		if buf[0] < rejectionBound {
			return int(buf[0]%6) + 1
		}
	}
}

// RollMultiple returns n independent rolls. n <= 0 yields an empty slice.
func RollMultiple(n int) []int {
	rolls := make([]int, 0, max(n, 0))
	for i := 0; i < n; i++ {
		rolls = append(rolls, Roll())
	}
	return rolls
}

// GenerateCommitment rolls a value under a fresh 32-byte secret and returns
// the full commitment triple.
func GenerateCommitment() DiceCommitment {
	raw := make([]byte, commitmentSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		panic("domain: secure random source unavailable: " + err.Error())
	}
	secret := hex.EncodeToString(raw)
	value := Roll()
	return DiceCommitment{
		Secret:     secret,
		Value:      value,
		Commitment: hashCommitment(secret, value),
	}
}

// VerifyCommitment checks a "secret:value" reveal against a previously
// disclosed commitment hash. On success it returns the committed value;
// malformed or tampered input returns ok=false and never an error.
func VerifyCommitment(reveal, commitment string) (value int, ok bool) {
	sum := sha256.Sum256([]byte(reveal))
	if hex.EncodeToString(sum[:]) != commitment {
		return 0, false
	}

	parts := strings.Split(reveal, ":")
	if len(parts) != 2 {
		return 0, false
	}
	v, err := strconv.Atoi(parts[1])
	if err != nil || !IsValidValue(v) {
		return 0, false
	}
	return v, true
}

// IsValidValue reports whether v is a legal die value.
func IsValidValue(v int) bool {
	return v >= DiceMin && v <= DiceMax
}

func hashCommitment(secret string, value int) string {
	sum := sha256.Sum256([]byte(secret + ":" + strconv.Itoa(value)))
	return hex.EncodeToString(sum[:])
}
