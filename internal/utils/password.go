package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost for stored password hashes.
const PasswordCost = 12

// MaxPasswordBytes is the longest input bcrypt hashes; longer passwords are rejected.
const MaxPasswordBytes = 72

// HashPassword returns a salted bcrypt hash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPasswordHash reports whether password matches the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
