package verify

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/openbuilders/payment-gateway/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength of 6 over a 36-character alphabet gives ~2.2B combinations,
	// far beyond what fits in a realistic claim window against a bcrypt hash.
	CodeLength = 6
	charset    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	hashCost = bcrypt.DefaultCost + 2
)

// Generate produces a one-time human-readable verification code.
func Generate() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(charset)))

	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("couldn't generate verification code: %w", err)
		}
		sb.WriteByte(charset[n.Int64()])
	}

	return sb.String(), nil
}

// Hash returns the salted, cost-factored hash of a code. The plaintext is
// never stored; this is the only form that reaches the database.
func Hash(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(normalize(code)), hashCost)
	if err != nil {
		return "", fmt.Errorf("couldn't hash verification code: %w", err)
	}

	return string(hash), nil
}

// Check compares a submitted code against a stored hash. A mismatch is
// reported as InvalidCode.
func Check(hash, submitted string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalize(submitted)))
	if err != nil {
		return errors.New(errors.CodeInvalidCode, "verification code mismatch")
	}

	return nil
}

// normalize makes submission case-insensitive.
func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
