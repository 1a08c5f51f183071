package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func TestRollRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := Roll()
		if !IsValidValue(v) {
			t.Fatalf("Roll() = %d, out of range", v)
		}
	}
}

func TestRollUniformity(t *testing.T) {
	const n = 10000
	counts := make(map[int]int)
	for i := 0; i < n; i++ {
		counts[Roll()]++
	}

	// Each face expects n/6 ≈ 1666; allow a generous band that a fair die
	// essentially never leaves (>10 sigma).
	for face := DiceMin; face <= DiceMax; face++ {
		if counts[face] < 1200 || counts[face] > 2200 {
			t.Errorf("face %d appeared %d times in %d rolls", face, counts[face], n)
		}
	}
}

func TestRollMultiple(t *testing.T) {
	if got := RollMultiple(0); len(got) != 0 {
		t.Errorf("RollMultiple(0) = %v, want empty", got)
	}
	got := RollMultiple(10)
	if len(got) != 10 {
		t.Fatalf("RollMultiple(10) returned %d rolls", len(got))
	}
	for _, v := range got {
		if !IsValidValue(v) {
			t.Errorf("roll %d out of range", v)
		}
	}
}

func TestGenerateCommitment(t *testing.T) {
	c := GenerateCommitment()
	if len(c.Secret) != 64 {
		t.Errorf("secret is %d chars, want 64", len(c.Secret))
	}
	if len(c.Commitment) != 64 {
		t.Errorf("commitment is %d chars, want 64", len(c.Commitment))
	}
	if !IsValidValue(c.Value) {
		t.Errorf("committed value %d out of range", c.Value)
	}

	value, ok := VerifyCommitment(fmt.Sprintf("%s:%d", c.Secret, c.Value), c.Commitment)
	if !ok || value != c.Value {
		t.Errorf("verification of own commitment failed: got (%d, %v)", value, ok)
	}
}

func TestVerifyCommitmentRejectsTampering(t *testing.T) {
	c := GenerateCommitment()
	reveal := fmt.Sprintf("%s:%d", c.Secret, c.Value)

	t.Run("Mutated secret", func(t *testing.T) {
		flip := byte('0')
		if reveal[0] == '0' {
			flip = '1'
		}
		tampered := string(flip) + reveal[1:]
		if _, ok := VerifyCommitment(tampered, c.Commitment); ok {
			t.Error("tampered secret accepted")
		}
	})

	t.Run("Mutated value", func(t *testing.T) {
		altered := c.Value%6 + 1
		tampered := fmt.Sprintf("%s:%d", c.Secret, altered)
		if _, ok := VerifyCommitment(tampered, c.Commitment); ok {
			t.Error("altered value accepted")
		}
	})

	t.Run("Mutated commitment", func(t *testing.T) {
		flip := byte('0')
		if c.Commitment[0] == '0' {
			flip = '1'
		}
		tampered := string(flip) + c.Commitment[1:]
		if _, ok := VerifyCommitment(reveal, tampered); ok {
			t.Error("tampered commitment accepted")
		}
	})
}

func TestVerifyCommitmentMalformed(t *testing.T) {
	tests := []struct {
		name   string
		reveal string
	}{
		{name: "Empty", reveal: ""},
		{name: "No colon", reveal: "deadbeef7"},
		{name: "Two colons", reveal: "dead:beef:7"},
		{name: "Non-numeric value", reveal: "deadbeef:x"},
		{name: "Value out of range", reveal: "deadbeef:7"},
		{name: "Zero value", reveal: "deadbeef:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Commit to the malformed string itself, so only the format
			// checks can reject it.
			c := commitTo(tt.reveal)
			if _, ok := VerifyCommitment(tt.reveal, c); ok {
				t.Errorf("malformed reveal %q accepted", tt.reveal)
			}
		})
	}
}

func TestIsValidValue(t *testing.T) {
	for v := DiceMin; v <= DiceMax; v++ {
		if !IsValidValue(v) {
			t.Errorf("IsValidValue(%d) = false", v)
		}
	}
	for _, v := range []int{0, -1, 7, 100} {
		if IsValidValue(v) {
			t.Errorf("IsValidValue(%d) = true", v)
		}
	}
}

// commitTo hashes an arbitrary reveal string the way the server would, so the
// malformed-input tests exercise the format checks rather than the hash check.
func commitTo(reveal string) string {
	sum := sha256.Sum256([]byte(reveal))
	return hex.EncodeToString(sum[:])
}
