package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var otpMax = big.NewInt(1000000)

// GenerateOTP returns a 6-digit numeric code drawn uniformly from
// 000000-999999, leading zeros preserved. The only randomness source
// is crypto/rand; if it fails the error is returned rather than
// falling back to anything predictable.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidOTPFormat reports whether s is exactly 6 decimal digits.
func ValidOTPFormat(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
