package meeting

import (
	"crypto/subtle"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// PasswordHasher turns a password into the value stored in the password
// column and checks candidates against it.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(stored, pw string) bool
}

// PlainHasher stores passwords as given, which keeps the column readable by
// existing consumers of the table.
type PlainHasher struct{}

func (PlainHasher) Hash(pw string) (string, error) { return pw, nil }

func (PlainHasher) Verify(stored, pw string) bool { return verifyStored(stored, pw) }

// BcryptHasher stores bcrypt hashes.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (BcryptHasher) Verify(stored, pw string) bool { return verifyStored(stored, pw) }

// verifyStored accepts both bcrypt hashes and plaintext values, so a table
// can be migrated one user at a time.
func verifyStored(stored, pw string) bool {
	if stored == "" {
		return false
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pw)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(pw)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// ValidatePassword enforces the password rule: at least MinPasswordLength
// characters and at least one ASCII letter.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength || !strings.ContainsFunc(pw, isASCIILetter) {
		return validationf("password must be at least %d characters and contain a letter", MinPasswordLength)
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
