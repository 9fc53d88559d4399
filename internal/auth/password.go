// PASSWORDS:
// Passwords are stored as bcrypt hashes. bcrypt is slow on purpose, salts
// every hash with fresh randomness, and writes salt and cost into the output:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^
//	    cost: 2^12 rounds
//
// so one column holds everything Verify needs, and hashes made under an
// older cost keep verifying after the configured cost changes.

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/inkpost/internal/apperror"
)

// DefaultCost is used when the configuration leaves the work factor at 0.
// Tune it so one hash takes a few hundred milliseconds on production hardware.
const DefaultCost = 12

// bcrypt ignores everything past 72 bytes; longer inputs are refused
// rather than silently truncated.
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords at a configured bcrypt cost.
type PasswordService struct {
	cost int
}

// NewPasswordService validates cost against bcrypt's range. 0 selects DefaultCost.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &PasswordService{cost: cost}, nil
}

// NewPasswordServiceForTest skips the range check. Other packages' tests use
// it with bcrypt.MinCost; production code never should.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext, ready to store as-is.
// Empty and over-long passwords fail with a validation error on "password".
func (p *PasswordService) Hash(plaintext string) (string, error) {
	switch {
	case plaintext == "":
		return "", apperror.ValidationFailed("password", "password must not be empty")
	case len(plaintext) > maxPasswordBytes:
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash: nil on a match,
// ErrPasswordMismatch on a wrong password, and any other error when the
// stored hash itself is unusable. The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}
